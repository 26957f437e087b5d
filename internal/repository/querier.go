package repository

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB used by the SQL adapters. It is also
// satisfied by the database circuit breaker.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
