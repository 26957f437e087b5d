package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"casetrack/internal/domain/entity"
	"casetrack/internal/handler/http/requestid"
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger() *slog.Logger {
	return New(os.Stdout, os.Getenv("LOG_FORMAT"), ParseLevel(os.Getenv("LOG_LEVEL")))
}

// NewTextLogger creates a human-readable logger for local development.
func NewTextLogger() *slog.Logger {
	return New(os.Stdout, "text", ParseLevel(os.Getenv("LOG_LEVEL")))
}

// New creates a logger writing to w. Source locations are added when the
// level admits debug output.
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// WithRequestID returns a new logger that includes the request ID from the context.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	reqID := requestid.FromContext(ctx)
	if reqID == "" {
		return logger
	}
	return logger.With(slog.String("request_id", reqID))
}

// WithNotification annotates the logger with the notification identity.
// The rendered message carries patient initials and is deliberately left out.
func WithNotification(logger *slog.Logger, n *entity.Notification) *slog.Logger {
	if n == nil {
		return logger
	}
	return logger.With(
		slog.String("notification_id", n.ID),
		slog.String("notify_type", n.Type),
		slog.Int64("case_id", n.CaseID),
	)
}

// NotificationLogger returns the context logger annotated with n and a
// context carrying it. When ctx already holds a logger for the same
// notification that logger is returned unchanged, so the identity fields
// appear once per record.
func NotificationLogger(ctx context.Context, n *entity.Notification) (context.Context, *slog.Logger) {
	logger := FromContext(ctx)
	if n == nil {
		return ctx, logger
	}
	if id, _ := ctx.Value(notificationContextKey).(string); id == n.ID {
		return ctx, logger
	}
	logger = WithNotification(logger, n)
	return WithNotificationLogger(ctx, logger, n.ID), logger
}

// WithNotificationLogger stores a logger that already carries the identity
// of notification id.
func WithNotificationLogger(ctx context.Context, logger *slog.Logger, id string) context.Context {
	return context.WithValue(WithLogger(ctx, logger), notificationContextKey, id)
}

// FromContext retrieves the logger from the context, or returns the default logger if not found.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const (
	loggerContextKey       contextKey = "logger"
	notificationContextKey contextKey = "notification_id"
)
