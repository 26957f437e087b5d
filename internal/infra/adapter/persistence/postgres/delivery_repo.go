package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"casetrack/internal/domain/entity"
	"casetrack/internal/repository"
)

type DeliveryRepo struct{ db repository.Querier }

func NewDeliveryRepo(db repository.Querier) repository.DeliveryRepository {
	return &DeliveryRepo{db: db}
}

func (repo *DeliveryRepo) Create(ctx context.Context, n *entity.Notification) error {
	targeting, err := json.Marshal(n.Targeting)
	if err != nil {
		return fmt.Errorf("Create: marshal targeting: %w", err)
	}

	const query = `
INSERT INTO notification_deliveries
    (id, notify_type, case_id, message, targeting, status, attempts, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (id) DO NOTHING`
	_, err = repo.db.ExecContext(ctx, query,
		n.ID, n.Type, n.CaseID, n.Message, targeting,
		n.Status, n.Attempts, n.LastError, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *DeliveryRepo) MarkSent(ctx context.Context, id string, attempts int) error {
	const query = `
UPDATE notification_deliveries SET
       status     = $1,
       attempts   = $2,
       last_error = '',
       updated_at = now()
WHERE id = $3`
	return repo.updateStatus(ctx, "MarkSent", query, entity.StatusSent, attempts, id)
}

func (repo *DeliveryRepo) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	const query = `
UPDATE notification_deliveries SET
       status     = $1,
       attempts   = $2,
       last_error = $3,
       updated_at = now()
WHERE id = $4`
	return repo.updateStatus(ctx, "MarkFailed", query, entity.StatusFailed, attempts, lastError, id)
}

func (repo *DeliveryRepo) updateStatus(ctx context.Context, op, query string, args ...interface{}) error {
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
WHERE (status = $1 OR (status = $2 AND created_at < $3))
AND attempts < $4
AND created_at >= $5
ORDER BY created_at ASC
LIMIT $6`
	rows, err := repo.db.QueryContext(ctx, query,
		entity.StatusFailed, entity.StatusPending, staleBefore, maxAttempts, since, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRetryable: %w", err)
	}
	defer func() { _ = rows.Close() }()

	deliveries := make([]*entity.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRetryable: %w", err)
		}
		deliveries = append(deliveries, n)
	}
	return deliveries, rows.Err()
}

// scanNotification scans a delivery row including the JSON targeting column.
func scanNotification(rows *sql.Rows) (*entity.Notification, error) {
	var n entity.Notification
	var targeting []byte
	if err := rows.Scan(
		&n.ID, &n.Type, &n.CaseID, &n.Message, &targeting,
		&n.Status, &n.Attempts, &n.LastError, &n.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(targeting) > 0 {
		if err := json.Unmarshal(targeting, &n.Targeting); err != nil {
			return nil, fmt.Errorf("unmarshal targeting: %w", err)
		}
	}
	return &n, nil
}
