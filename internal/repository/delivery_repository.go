package repository

import (
	"context"
	"time"

	"casetrack/internal/domain/entity"
)

// DeliveryRepository persists the delivery log of push notifications.
type DeliveryRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	MarkSent(ctx context.Context, id string, attempts int) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
	// ListRetryable returns deliveries created after since whose attempt
	// count is below maxAttempts, oldest first. Failed rows qualify at once;
	// pending rows only when created before staleBefore, since a pending row
	// that old was lost by the queue or a crashed process.
	ListRetryable(ctx context.Context, maxAttempts int, since, staleBefore time.Time, limit int) ([]*entity.Notification, error)
}
