// Package logging provides slog loggers configured from the environment.
//
// LOG_LEVEL selects debug, info, warn or error (default info) and LOG_FORMAT
// selects json (default) or text.
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	func deliver(ctx context.Context, n *entity.Notification) {
//	    logger := logging.WithNotification(logging.WithRequestID(ctx, slog.Default()), n)
//	    logger.Info("delivering notification")
//	}
package logging
