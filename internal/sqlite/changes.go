package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhall/workbench/internal/repository"
)

// ChangeRepository implements repository.ChangeRepository for SQLite
type ChangeRepository struct {
	db *DB
}

// NewChangeRepository creates a new ChangeRepository
func NewChangeRepository(db *DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

// Upsert records a per-field edit, replacing any prior edit of the same
// field on the same entity.
func (r *ChangeRepository) Upsert(ctx context.Context, change *repository.Change) error {
	if strings.TrimSpace(change.Kind) == "" || strings.TrimSpace(change.EntityID) == "" || strings.TrimSpace(change.Field) == "" {
		return repository.ErrInvalidInput
	}

	query := `
		INSERT INTO workshop_changes (kind, entity_id, field, new_value, original_value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, entity_id, field) DO UPDATE SET
			new_value = excluded.new_value,
			original_value = excluded.original_value,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		change.Kind,
		change.EntityID,
		change.Field,
		change.NewValue,
		change.OriginalValue,
		change.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert change: %w", err)
	}

	return nil
}

// List returns the most recently updated changes, newest first.
func (r *ChangeRepository) List(ctx context.Context, limit int) ([]repository.Change, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT kind, entity_id, field, new_value, original_value, updated_at
		FROM workshop_changes
		ORDER BY updated_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	var changes []repository.Change
	for rows.Next() {
		var c repository.Change
		if err := rows.Scan(&c.Kind, &c.EntityID, &c.Field, &c.NewValue, &c.OriginalValue, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read changes: %w", err)
	}

	return changes, nil
}

// Prune deletes all but the keep most recently updated rows, bounding the
// change log the way the browser kept only its last 50 edits.
func (r *ChangeRepository) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return repository.ErrInvalidInput
	}

	query := `
		DELETE FROM workshop_changes
		WHERE (kind, entity_id, field) NOT IN (
			SELECT kind, entity_id, field
			FROM workshop_changes
			ORDER BY updated_at DESC
			LIMIT ?
		)
	`

	if _, err := r.db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("failed to prune changes: %w", err)
	}

	return nil
}
