// Package notify dispatches case notifications to staff devices. It looks up
// the notification type, renders the personalized message, builds the
// targeting directive and hands the result to a push channel, either inline
// or through a delivery queue served by workers with a circuit breaker.
package notify

import (
	"context"

	"casetrack/internal/domain/entity"
)

// Channel represents a push delivery channel.
//
// Retry Policy Contract:
//   - Transient failures (5xx, network errors): retried with exponential backoff
//   - Rate limits (429): wait for Retry-After, then retry
//   - Client errors (4xx except 408/429): no retry
//   - Context timeout: no retry
//
// All methods must be safe for concurrent use.
type Channel interface {
	// Name returns the channel identifier used in logs, metrics and health output.
	Name() string

	// IsEnabled returns true if this channel is enabled via configuration.
	IsEnabled() bool

	// Validate reports configuration problems (e.g. missing credentials)
	// without any network traffic.
	Validate() error

	// Send submits one rendered notification.
	//
	// Returns:
	//   - ErrChannelDisabled: if called on a disabled channel
	//   - provider errors, wrapped with context
	Send(ctx context.Context, n *entity.Notification) error
}
