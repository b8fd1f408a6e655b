package edit

import (
	"time"

	"github.com/jhall/workbench/internal/content"
)

// FieldRef addresses one editable field. Entities are referenced by their
// immutable surrogate key, so a reference stays valid even if the entity's
// slug ID is renamed while the edit or its history entry is outstanding.
type FieldRef struct {
	Kind  content.Kind
	Key   string
	Field string
}

// Step is one recorded edit: the field and its content before the change.
type Step struct {
	Ref   FieldRef
	Prior any
	At    time.Time
}

// History is a bounded linear undo/redo pair. Oldest undo entries are
// evicted first; the redo stack is cleared whenever a new edit commits.
type History struct {
	limit int
	undo  []Step
	redo  []Step
}

// NewHistory creates a history bounded to limit steps. Zero or negative
// means 50.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 50
	}
	return &History{limit: limit}
}

// PushUndo records a step, evicting the oldest entry past the bound.
func (h *History) PushUndo(step Step) {
	h.undo = append(h.undo, step)
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
}

// PopUndo removes and returns the most recent step.
func (h *History) PopUndo() (Step, bool) {
	if len(h.undo) == 0 {
		return Step{}, false
	}
	step := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return step, true
}

// PushRedo records a step reversed out by undo.
func (h *History) PushRedo(step Step) {
	h.redo = append(h.redo, step)
	if len(h.redo) > h.limit {
		h.redo = h.redo[len(h.redo)-h.limit:]
	}
}

// PopRedo removes and returns the most recently undone step.
func (h *History) PopRedo() (Step, bool) {
	if len(h.redo) == 0 {
		return Step{}, false
	}
	step := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return step, true
}

// ClearRedo empties the redo stack.
func (h *History) ClearRedo() {
	h.redo = nil
}

// UndoDepth returns the number of undoable steps.
func (h *History) UndoDepth() int { return len(h.undo) }

// RedoDepth returns the number of redoable steps.
func (h *History) RedoDepth() int { return len(h.redo) }
