package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"casetrack/internal/domain/entity"
	"casetrack/internal/infra/notifier"
	"casetrack/internal/observability/logging"
)

// PushChannel adapts a notifier.Notifier to the Channel interface.
type PushChannel struct {
	name    string
	enabled bool
	client  notifier.Notifier
}

// NewPushChannel creates a channel named name sending through client.
func NewPushChannel(name string, enabled bool, client notifier.Notifier) *PushChannel {
	return &PushChannel{name: name, enabled: enabled, client: client}
}

// Name implements Channel.
func (c *PushChannel) Name() string { return c.name }

// IsEnabled implements Channel.
func (c *PushChannel) IsEnabled() bool { return c.enabled }

// Validate implements Channel. Clients without a Validate method are
// always valid.
func (c *PushChannel) Validate() error {
	v, ok := c.client.(interface{ Validate() error })
	if !ok {
		return nil
	}
	err := v.Validate()
	if errors.Is(err, notifier.ErrMissingAppID) || errors.Is(err, notifier.ErrMissingAPIKey) {
		return fmt.Errorf("%w: %w", ErrMissingCredentials, err)
	}
	return err
}

// Send implements Channel.
func (c *PushChannel) Send(ctx context.Context, n *entity.Notification) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	receipt, err := c.client.Notify(ctx, n)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	_, logger := logging.NotificationLogger(ctx, n)
	logger.Debug("push provider receipt",
		slog.String("channel", c.name),
		slog.String("provider_id", receipt.ID),
		slog.Int("recipients", receipt.Recipients))
	return nil
}
