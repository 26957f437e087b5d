package notifier

import (
	"context"
	"log/slog"

	"casetrack/internal/domain/entity"
)

// NoOpNotifier accepts every notification without sending it. It backs the
// push channel when delivery is disabled, e.g. in local development.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier instance.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Notify logs the notification identity and returns an empty receipt.
func (n *NoOpNotifier) Notify(ctx context.Context, notification *entity.Notification) (*Receipt, error) {
	slog.DebugContext(ctx, "push delivery disabled, notification not sent",
		slog.String("notification_id", notification.ID),
		slog.String("notify_type", notification.Type))
	return &Receipt{}, nil
}
