package github

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the remote path does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrUnauthorized indicates the credential was rejected.
	ErrUnauthorized = errors.New("bad credential")
	// ErrConflict indicates a write was rejected because the supplied SHA
	// is stale: the blob was modified since it was last fetched.
	ErrConflict = errors.New("write conflict: stale sha")
)

// ReadError is a non-2xx response to a content read. Status lets callers
// classify the failure (404 file missing, 401 bad credential).
type ReadError struct {
	Path   string
	Status int
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: remote returned %d", e.Path, e.Status)
}

func (e *ReadError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == 404
	case ErrUnauthorized:
		return e.Status == 401
	}
	return false
}

// WriteError is a non-2xx, non-conflict response to a content write.
type WriteError struct {
	Path   string
	Status int
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: remote returned %d", e.Path, e.Status)
}

func (e *WriteError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == 401
}

// ConflictError is a write rejected due to a stale SHA precondition. It is
// surfaced distinctly so callers can re-fetch and retry instead of blindly
// overwriting.
type ConflictError struct {
	Path        string
	ExpectedSHA string
	Status      int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("writing %s: sha %s is stale (status %d)", e.Path, e.ExpectedSHA, e.Status)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
