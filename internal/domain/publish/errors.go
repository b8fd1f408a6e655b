package publish

import "errors"

var (
	// ErrUnknownContentType indicates an unrecognized content-type tag on a
	// per-field edit.
	ErrUnknownContentType = errors.New("unknown content type")
	// ErrMissingFields indicates a per-field edit missing required fields.
	ErrMissingFields = errors.New("missing required fields")
	// ErrUnknownCommand indicates an unrecognized command type.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrConfirmRequired indicates a delete was dispatched without the
	// caller's explicit confirmation signal.
	ErrConfirmRequired = errors.New("deletion requires confirmation")
	// ErrNoRemote indicates a save was requested with no remote configured.
	ErrNoRemote = errors.New("no remote repository configured")
)
