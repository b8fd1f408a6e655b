package auth

import "time"

// State is the authentication state machine position.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateLocked        State = "locked"
	StateAuthenticated State = "authenticated"
)

// Session is an issued edit-mode credential.
type Session struct {
	Token     string    `json:"sessionToken"`
	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// Claims is the signed token payload. Field names and epoch-millisecond
// values match the workshop wire format. A token is valid only when
// WorkshopMode is true and the current time is before Expires; any other
// shape is invalid, not merely unauthenticated.
type Claims struct {
	WorkshopMode bool  `json:"workshopMode"`
	Timestamp    int64 `json:"timestamp"`
	Expires      int64 `json:"expires"`
}

// RateLimit is a caller-visible snapshot of the attempt state.
type RateLimit struct {
	FailCount int
	Remaining int
	Locked    bool
	LockUntil time.Time
}
