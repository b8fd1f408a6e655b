package content

import "errors"

var (
	// ErrInvalidDocument indicates the document is missing required
	// top-level keys or required site fields.
	ErrInvalidDocument = errors.New("invalid content document")
	// ErrNotLoaded indicates no document has been loaded into the store.
	ErrNotLoaded = errors.New("no document loaded")
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrUnknownKind indicates an unrecognized entity kind.
	ErrUnknownKind = errors.New("unknown entity kind")
	// ErrUnknownField indicates the field is not editable on this kind.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue indicates a value of the wrong type for the field.
	ErrInvalidValue = errors.New("invalid value for field")
)
