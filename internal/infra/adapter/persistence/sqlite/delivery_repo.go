package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"casetrack/internal/domain/entity"
	"casetrack/internal/repository"
)

// DeliveryRepo stores timestamps as unix milliseconds so range filters
// compare numerically.
type DeliveryRepo struct {
	db  repository.Querier
	now func() time.Time
}

func NewDeliveryRepo(db repository.Querier) repository.DeliveryRepository {
	return &DeliveryRepo{db: db, now: time.Now}
}

func (repo *DeliveryRepo) Create(ctx context.Context, n *entity.Notification) error {
	targeting, err := json.Marshal(n.Targeting)
	if err != nil {
		return fmt.Errorf("Create: marshal targeting: %w", err)
	}

	const query = `
INSERT OR IGNORE INTO notification_deliveries
    (id, notify_type, case_id, message, targeting, status, attempts, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	created := n.CreatedAt.UnixMilli()
	_, err = repo.db.ExecContext(ctx, query,
		n.ID, n.Type, n.CaseID, n.Message, string(targeting),
		n.Status, n.Attempts, n.LastError, created, created,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *DeliveryRepo) MarkSent(ctx context.Context, id string, attempts int) error {
	const query = `
UPDATE notification_deliveries
SET status = ?, attempts = ?, last_error = '', updated_at = ?
WHERE id = ?`
	return repo.exec(ctx, "MarkSent", query, entity.StatusSent, attempts, repo.now().UnixMilli(), id)
}

func (repo *DeliveryRepo) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	const query = `
UPDATE notification_deliveries
SET status = ?, attempts = ?, last_error = ?, updated_at = ?
WHERE id = ?`
	return repo.exec(ctx, "MarkFailed", query, entity.StatusFailed, attempts, lastError, repo.now().UnixMilli(), id)
}

func (repo *DeliveryRepo) exec(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrNotFound)
	}
	return nil
}

func (repo *DeliveryRepo) ListRetryable(ctx context.Context, maxAttempts int, since, staleBefore time.Time, limit int) ([]*entity.Notification, error) {
	const query = `
SELECT id, notify_type, case_id, message, targeting, status, attempts, last_error, created_at
FROM notification_deliveries
WHERE (status = ? OR (status = ? AND created_at < ?))
AND attempts < ? AND created_at >= ?
ORDER BY created_at ASC
LIMIT ?`
	rows, err := repo.db.QueryContext(ctx, query,
		entity.StatusFailed, entity.StatusPending, staleBefore.UnixMilli(), maxAttempts, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("ListRetryable: %w", err)
	}
	defer func() { _ = rows.Close() }()

	deliveries := make([]*entity.Notification, 0, limit)
	for rows.Next() {
		var n entity.Notification
		var targeting string
		var created int64
		if err := rows.Scan(
			&n.ID, &n.Type, &n.CaseID, &n.Message, &targeting,
			&n.Status, &n.Attempts, &n.LastError, &created,
		); err != nil {
			return nil, fmt.Errorf("ListRetryable: %w", err)
		}
		n.CreatedAt = time.UnixMilli(created).UTC()
		if targeting != "" {
			if err := json.Unmarshal([]byte(targeting), &n.Targeting); err != nil {
				return nil, fmt.Errorf("ListRetryable: unmarshal targeting: %w", err)
			}
		}
		deliveries = append(deliveries, &n)
	}
	return deliveries, rows.Err()
}
