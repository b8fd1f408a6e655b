package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jhall/workbench/internal/repository"
)

// AttemptRepository implements repository.AttemptRepository for SQLite
type AttemptRepository struct {
	db *DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Get retrieves the rate-limit state for a scope.
func (r *AttemptRepository) Get(ctx context.Context, scope string) (*repository.AttemptState, error) {
	query := `
		SELECT scope, fail_count, last_attempt_at, locked, lock_until
		FROM auth_attempts
		WHERE scope = ?
	`

	var state repository.AttemptState
	var lastAttempt sql.NullTime
	var lockUntil sql.NullTime
	var locked int
	err := r.db.QueryRowContext(ctx, query, scope).Scan(
		&state.Scope,
		&state.FailCount,
		&lastAttempt,
		&locked,
		&lockUntil,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt state: %w", err)
	}

	state.Locked = locked != 0
	if lastAttempt.Valid {
		state.LastAttemptAt = lastAttempt.Time
	}
	if lockUntil.Valid {
		state.LockUntil = lockUntil.Time
	}

	return &state, nil
}

// Put stores the rate-limit state for a scope.
func (r *AttemptRepository) Put(ctx context.Context, state *repository.AttemptState) error {
	if strings.TrimSpace(state.Scope) == "" {
		return repository.ErrInvalidInput
	}

	query := `
		INSERT INTO auth_attempts (scope, fail_count, last_attempt_at, locked, lock_until)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (scope) DO UPDATE SET
			fail_count = excluded.fail_count,
			last_attempt_at = excluded.last_attempt_at,
			locked = excluded.locked,
			lock_until = excluded.lock_until
	`

	locked := 0
	if state.Locked {
		locked = 1
	}

	_, err := r.db.ExecContext(ctx, query,
		state.Scope,
		state.FailCount,
		state.LastAttemptAt,
		locked,
		state.LockUntil,
	)
	if err != nil {
		return fmt.Errorf("failed to put attempt state: %w", err)
	}

	return nil
}

// Clear removes the rate-limit state for a scope entirely.
func (r *AttemptRepository) Clear(ctx context.Context, scope string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_attempts WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("failed to clear attempt state: %w", err)
	}
	return nil
}
