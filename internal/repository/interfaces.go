package repository

import (
	"context"
	"time"
)

// Change is one durable per-field edit record from workshop mode. The
// (Kind, EntityID, Field) triple is the upsert key: re-sending the same
// edit replaces the row instead of appending.
type Change struct {
	Kind          string
	EntityID      string
	Field         string
	NewValue      string
	OriginalValue string
	UpdatedAt     time.Time
}

// ChangeRepository manages the workshop change log.
type ChangeRepository interface {
	Upsert(ctx context.Context, change *Change) error
	List(ctx context.Context, limit int) ([]Change, error)
	// Prune keeps only the most recently updated rows.
	Prune(ctx context.Context, keep int) error
}

// AttemptState is the rate-limit record for PIN authentication. Locked
// implies the current time is before LockUntil; once that passes the
// counter resets to zero.
type AttemptState struct {
	Scope         string
	FailCount     int
	LastAttemptAt time.Time
	Locked        bool
	LockUntil     time.Time
}

// AttemptRepository persists rate-limit state across restarts, the durable
// analog of the browser-local attempt record.
type AttemptRepository interface {
	Get(ctx context.Context, scope string) (*AttemptState, error)
	Put(ctx context.Context, state *AttemptState) error
	Clear(ctx context.Context, scope string) error
}
