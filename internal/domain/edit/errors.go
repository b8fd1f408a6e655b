package edit

import "errors"

var (
	// ErrNoActiveEdit indicates a commit or cancel without a begun edit.
	ErrNoActiveEdit = errors.New("no active edit")
	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")
)
