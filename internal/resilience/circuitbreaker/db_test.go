package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBCircuitBreaker(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(db)

	require.NotNil(t, dcb)
	assert.Equal(t, "database", dcb.Name())
	assert.Equal(t, gobreaker.StateClosed, dcb.State())
}

func TestDBCircuitBreaker_QueryAndExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM notification_deliveries").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("n-1"))
	mock.ExpectExec("UPDATE notification_deliveries").
		WithArgs("sent", "n-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := dcb.QueryContext(ctx, "SELECT id FROM notification_deliveries")
	require.NoError(t, err)
	_ = rows.Close()

	res, err := dcb.ExecContext(ctx, "UPDATE notification_deliveries SET status = $1 WHERE id = $2", "sent", "n-1")
	require.NoError(t, err)
	affected, _ := res.RowsAffected()
	assert.Equal(t, int64(1), affected)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg := DBConfig()
	cfg.Timeout = 50 * time.Millisecond
	dcb := NewDBCircuitBreakerWithConfig(db, cfg)
	ctx := context.Background()

	dbErr := errors.New("database connection failed")
	for i := 0; i < 5; i++ {
		mock.ExpectExec("INSERT (.+)").WillReturnError(dbErr)
	}
	for i := 0; i < 5; i++ {
		_, err := dcb.ExecContext(ctx, "INSERT INTO notification_deliveries (id) VALUES ($1)", "n")
		assert.ErrorIs(t, err, dbErr)
	}
	require.True(t, dcb.IsOpen())

	// rejected without reaching the database
	_, err = dcb.QueryContext(ctx, "SELECT 1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.NoError(t, mock.ExpectationsWereMet())

	time.Sleep(100 * time.Millisecond)
	mock.ExpectQuery("SELECT (.+)").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	rows, err := dcb.QueryContext(ctx, "SELECT 1")
	require.NoError(t, err)
	_ = rows.Close()
}

func TestDBCircuitBreaker_QueryRowContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(db)

	mock.ExpectQuery("SELECT (.+) FROM cases WHERE case_id = ?").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"case_id", "first_name"}).AddRow(7, "Alice"))

	var id int64
	var first string
	err = dcb.QueryRowContext(context.Background(), "SELECT case_id, first_name FROM cases WHERE case_id = ?", int64(7)).Scan(&id, &first)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "Alice", first)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBConfig(t *testing.T) {
	cfg := DBConfig()

	assert.Equal(t, "database", cfg.Name)
	assert.Equal(t, uint32(3), cfg.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.Equal(t, 1.0, cfg.FailureThreshold)
}

func TestQueryResult(t *testing.T) {
	assert.Equal(t, "ok", queryResult(nil))
	assert.Equal(t, "rejected", queryResult(gobreaker.ErrOpenState))
	assert.Equal(t, "rejected", queryResult(gobreaker.ErrTooManyRequests))
	assert.Equal(t, "error", queryResult(errors.New("connection reset")))
}
