// Package notifier delivers rendered case notifications to the push provider.
// OneSignalNotifier is the production client; NoOpNotifier stands in when
// delivery is disabled.
package notifier

import (
	"context"

	"casetrack/internal/domain/entity"
)

// Notifier submits one notification to a push provider.
// Implementations apply their own rate limiting and bounded retry and must be
// safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n *entity.Notification) (*Receipt, error)
}

// Receipt is the provider's acknowledgement of an accepted notification.
type Receipt struct {
	ID         string
	Recipients int
}
