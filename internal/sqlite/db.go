package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema.
func (db *DB) RunMigrations() error {
	migration := `
-- Durable per-field workshop edits, idempotent on the addressed field
CREATE TABLE IF NOT EXISTS workshop_changes (
    kind TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    field TEXT NOT NULL,
    new_value TEXT NOT NULL,
    original_value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (kind, entity_id, field)
);
CREATE INDEX IF NOT EXISTS idx_changes_updated ON workshop_changes(updated_at);

-- PIN rate-limit state, one row per scope
CREATE TABLE IF NOT EXISTS auth_attempts (
    scope TEXT PRIMARY KEY,
    fail_count INTEGER NOT NULL DEFAULT 0,
    last_attempt_at TIMESTAMP,
    locked INTEGER NOT NULL DEFAULT 0,
    lock_until TIMESTAMP
);
`

	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
