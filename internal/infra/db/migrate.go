package db

import (
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`
CREATE TABLE IF NOT EXISTS notification_deliveries (
    id          TEXT PRIMARY KEY,
    notify_type TEXT NOT NULL,
    case_id     BIGINT NOT NULL,
    message     TEXT NOT NULL,
    targeting   JSONB NOT NULL,
    status      VARCHAR(16) NOT NULL DEFAULT 'pending',
    attempts    INT NOT NULL DEFAULT 0,
    last_error  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	// redelivery sweep: WHERE status = 'failed' AND attempts < $2 AND created_at >= $3
	`CREATE INDEX IF NOT EXISTS idx_notification_deliveries_status_created ON notification_deliveries(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_deliveries_case_id ON notification_deliveries(case_id)`,
}

// The cases table is owned by the case-management system in production.
// SQLite setups create the read columns so the notifier can run standalone.
var sqliteSchema = []string{
	`
CREATE TABLE IF NOT EXISTS cases (
    case_id    INTEGER PRIMARY KEY,
    first_name TEXT NOT NULL,
    last_name  TEXT NOT NULL,
    dob        TEXT,
    gender     TEXT
)`,
	`
CREATE TABLE IF NOT EXISTS notification_deliveries (
    id          TEXT PRIMARY KEY,
    notify_type TEXT NOT NULL,
    case_id     INTEGER NOT NULL,
    message     TEXT NOT NULL,
    targeting   TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'pending',
    attempts    INTEGER NOT NULL DEFAULT 0,
    last_error  TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_deliveries_status_created ON notification_deliveries(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_deliveries_case_id ON notification_deliveries(case_id)`,
}

// MigrateUp creates the delivery log schema for the given driver.
// Statements are idempotent.
func MigrateUp(db *sql.DB, driver string) error {
	name, err := NormalizeDriver(driver)
	if err != nil {
		return err
	}
	stmts := postgresSchema
	if name == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	}
	return nil
}

// MigrateDown drops the delivery log. The cases table is left untouched.
// Use with caution: this will delete all recorded deliveries.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_notification_deliveries_case_id`,
		`DROP INDEX IF EXISTS idx_notification_deliveries_status_created`,
		`DROP TABLE IF EXISTS notification_deliveries`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	}
	return nil
}
