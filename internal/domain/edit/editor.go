// Package edit manages the lifecycle of one in-place field edit and a
// bounded undo/redo history across an editing session. Commits apply
// optimistically to the local store before remote persistence; a failed
// persist reverts the local value but never corrupts the history stacks.
package edit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jhall/workbench/internal/content"
)

// Persister pushes one committed field edit toward durable storage.
type Persister interface {
	PersistEdit(ctx context.Context, ref FieldRef, newValue, prior any) error
}

type activeEdit struct {
	ref   FieldRef
	prior any
}

// Editor is the edit-session state machine: Idle -> Editing -> Idle. Only
// one field may be editing at a time; beginning a new edit force-commits
// the prior one.
type Editor struct {
	store   *content.Store
	history *History
	persist Persister
	active  *activeEdit
	logger  *slog.Logger
}

// NewEditor creates an editor over the store. persist may be nil for
// local-only editing.
func NewEditor(store *content.Store, history *History, persist Persister, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Editor{
		store:   store,
		history: history,
		persist: persist,
		logger:  logger,
	}
}

// Editing reports whether an edit is in progress.
func (e *Editor) Editing() bool { return e.active != nil }

// History exposes the undo/redo stacks for depth inspection.
func (e *Editor) History() *History { return e.history }

// BeginEdit captures the field's current content and transitions to
// Editing, pushing an undo step. An already-active edit is force-committed
// first; since no replacement value was staged, that commit is the
// unchanged case and leaves no history entry.
func (e *Editor) BeginEdit(ref FieldRef) error {
	if e.active != nil {
		if _, ok := e.history.PopUndo(); !ok {
			return fmt.Errorf("active edit with empty undo stack")
		}
		e.active = nil
	}

	prior, err := e.store.GetFieldByKey(ref.Kind, ref.Key, ref.Field)
	if err != nil {
		return fmt.Errorf("capturing prior content: %w", err)
	}

	e.history.PushUndo(Step{Ref: ref, Prior: prior, At: time.Now()})
	e.active = &activeEdit{ref: ref, prior: prior}
	return nil
}

// CommitEdit applies the new content. Unchanged content is a pure no-op:
// no remote call, dirty flag untouched, and the step pushed by BeginEdit is
// dropped so a no-op edit never materializes as a historical change.
// Changed content is applied optimistically, the redo stack is cleared, and
// the edit is persisted; on persistence failure the local value and dirty
// state are reverted while the undo step remains valid.
func (e *Editor) CommitEdit(ctx context.Context, newValue any) error {
	if e.active == nil {
		return ErrNoActiveEdit
	}
	active := e.active

	if newValue == active.prior {
		e.history.PopUndo()
		e.active = nil
		return nil
	}

	wasDirty := e.store.IsDirty()
	if err := e.store.SetFieldByKey(active.ref.Kind, active.ref.Key, active.ref.Field, newValue); err != nil {
		e.history.PopUndo()
		e.active = nil
		return fmt.Errorf("applying edit: %w", err)
	}
	e.history.ClearRedo()
	e.active = nil

	if e.persist == nil {
		return nil
	}

	if err := e.persist.PersistEdit(ctx, active.ref, newValue, active.prior); err != nil {
		// Revert the optimistic update. The undo step stays on the stack:
		// undo operates purely on local state, independent of remote
		// outcome.
		if revertErr := e.store.SetFieldByKey(active.ref.Kind, active.ref.Key, active.ref.Field, active.prior); revertErr != nil {
			e.logger.Error("failed to revert optimistic update", "error", revertErr)
		}
		e.store.SetDirty(wasDirty)
		return fmt.Errorf("persisting edit: %w", err)
	}
	return nil
}

// CancelEdit discards the in-progress edit and drops the undo step pushed
// by BeginEdit; a cancelled edit never appears in history.
func (e *Editor) CancelEdit() error {
	if e.active == nil {
		return ErrNoActiveEdit
	}
	e.history.PopUndo()
	e.active = nil
	return nil
}

// Undo reverts the most recent committed edit locally and pushes the
// pre-undo content onto the redo stack.
func (e *Editor) Undo() error {
	step, ok := e.history.PopUndo()
	if !ok {
		return ErrNothingToUndo
	}

	current, err := e.store.GetFieldByKey(step.Ref.Kind, step.Ref.Key, step.Ref.Field)
	if err != nil {
		e.history.PushUndo(step)
		return fmt.Errorf("reading current content: %w", err)
	}
	if err := e.store.SetFieldByKey(step.Ref.Kind, step.Ref.Key, step.Ref.Field, step.Prior); err != nil {
		e.history.PushUndo(step)
		return fmt.Errorf("applying undo: %w", err)
	}

	e.history.PushRedo(Step{Ref: step.Ref, Prior: current, At: time.Now()})
	return nil
}

// Redo is the mirror of Undo.
func (e *Editor) Redo() error {
	step, ok := e.history.PopRedo()
	if !ok {
		return ErrNothingToRedo
	}

	current, err := e.store.GetFieldByKey(step.Ref.Kind, step.Ref.Key, step.Ref.Field)
	if err != nil {
		e.history.PushRedo(step)
		return fmt.Errorf("reading current content: %w", err)
	}
	if err := e.store.SetFieldByKey(step.Ref.Kind, step.Ref.Key, step.Ref.Field, step.Prior); err != nil {
		e.history.PushRedo(step)
		return fmt.Errorf("applying redo: %w", err)
	}

	e.history.PushUndo(Step{Ref: step.Ref, Prior: current, At: time.Now()})
	return nil
}
