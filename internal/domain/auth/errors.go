package auth

import "errors"

var (
	// ErrInvalidPIN indicates the submitted PIN did not match.
	ErrInvalidPIN = errors.New("invalid pin")
	// ErrLocked indicates authentication is locked out after repeated
	// failures; submissions are rejected without checking the PIN.
	ErrLocked = errors.New("authentication locked")
	// ErrNotConfigured indicates the PIN hash or token secret is missing.
	// Authentication fails closed, never default-allows.
	ErrNotConfigured = errors.New("authentication system not configured")
	// ErrInvalidToken indicates a token with a bad signature or shape.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrSessionExpired indicates a well-formed token past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrMissingPIN indicates an empty PIN submission.
	ErrMissingPIN = errors.New("pin is required")
)
