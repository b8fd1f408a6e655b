package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jhall/workbench/internal/repository"
)

// Scope keys the shared rate-limit record. The tool assumes a single
// operator, so all attempts share one scope.
const Scope = "workshop"

// Config holds the tunable authentication parameters.
type Config struct {
	// PINHash is the SHA-256 hex digest of the workshop PIN.
	PINHash string
	// TokenSecret signs session tokens.
	TokenSecret string
	// SessionTTL bounds issued credentials. Zero means 24 hours.
	SessionTTL time.Duration
	// MaxAttempts is the consecutive-failure lockout threshold. Zero means 5.
	MaxAttempts int
	// Lockout is how long authentication stays locked. Zero means 15 minutes.
	Lockout time.Duration
	// AttemptWindow is the inactivity period after which the failure
	// counter resets on its own. Zero means 1 hour.
	AttemptWindow time.Duration
}

// Service issues and validates PIN-gated edit-mode credentials.
type Service struct {
	cfg      Config
	attempts repository.AttemptRepository
	logger   *slog.Logger

	// hash is injectable so tests can observe whether the PIN comparison
	// ran at all during lockout.
	hash func(string) string
	now  func() time.Time
}

// NewService creates an authentication service.
func NewService(cfg Config, attempts repository.AttemptRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Lockout == 0 {
		cfg.Lockout = 15 * time.Minute
	}
	if cfg.AttemptWindow == 0 {
		cfg.AttemptWindow = time.Hour
	}
	return &Service{
		cfg:      cfg,
		attempts: attempts,
		logger:   logger,
		hash:     HashPIN,
		now:      time.Now,
	}
}

// SetHasher overrides the PIN hasher. Test hook.
func (s *Service) SetHasher(hash func(string) string) { s.hash = hash }

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Authenticate checks a PIN submission and, on success, issues a session
// token and clears the rate-limit state. A missing server-side secret fails
// closed with ErrNotConfigured.
func (s *Service) Authenticate(ctx context.Context, pin string) (*Session, error) {
	if strings.TrimSpace(pin) == "" {
		return nil, ErrMissingPIN
	}
	if s.cfg.PINHash == "" || s.cfg.TokenSecret == "" {
		s.logger.Error("authentication attempted without configured pin hash or token secret")
		return nil, ErrNotConfigured
	}

	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}

	if state.Locked {
		// Rejected without invoking the hash comparison, preserving lockout.
		s.logger.Warn("authentication rejected while locked", "lock_until", state.LockUntil)
		return nil, ErrLocked
	}

	if subtle.ConstantTimeCompare([]byte(s.hash(pin)), []byte(s.cfg.PINHash)) != 1 {
		return nil, s.recordFailure(ctx, state)
	}

	if err := s.attempts.Clear(ctx, Scope); err != nil {
		return nil, fmt.Errorf("clearing attempt state: %w", err)
	}

	now := s.now()
	claims := Claims{
		WorkshopMode: true,
		Timestamp:    now.UnixMilli(),
		Expires:      now.Add(s.cfg.SessionTTL).UnixMilli(),
	}
	token, err := signToken([]byte(s.cfg.TokenSecret), claims)
	if err != nil {
		return nil, err
	}

	s.logger.Info("workshop session issued", "expires", time.UnixMilli(claims.Expires))
	return &Session{
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: time.UnixMilli(claims.Expires),
	}, nil
}

// Validate checks a session token on a protected call. Expiry is evaluated
// lazily here, not by a timer.
func (s *Service) Validate(token string) (*Claims, error) {
	if s.cfg.TokenSecret == "" {
		return nil, ErrNotConfigured
	}
	claims, err := parseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return nil, err
	}
	if !claims.WorkshopMode {
		return nil, ErrInvalidToken
	}
	if s.now().UnixMilli() >= claims.Expires {
		return nil, ErrSessionExpired
	}
	return &claims, nil
}

// State reports the current state machine position for display purposes.
func (s *Service) State(ctx context.Context) (State, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return StateAnonymous, err
	}
	if state.Locked {
		return StateLocked, nil
	}
	return StateAnonymous, nil
}

// RateLimit reports a snapshot of the attempt state.
func (s *Service) RateLimit(ctx context.Context) (RateLimit, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return RateLimit{}, err
	}
	remaining := s.cfg.MaxAttempts - state.FailCount
	if remaining < 0 {
		remaining = 0
	}
	return RateLimit{
		FailCount: state.FailCount,
		Remaining: remaining,
		Locked:    state.Locked,
		LockUntil: state.LockUntil,
	}, nil
}

// loadState reads the attempt record and applies the time-based resets:
// lockout expiry reverts Locked and zeroes the counter, and an hour of
// inactivity zeroes the counter on its own.
func (s *Service) loadState(ctx context.Context) (*repository.AttemptState, error) {
	state, err := s.attempts.Get(ctx, Scope)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &repository.AttemptState{Scope: Scope}, nil
		}
		return nil, fmt.Errorf("loading attempt state: %w", err)
	}

	now := s.now()
	if state.Locked && now.After(state.LockUntil) {
		state.Locked = false
		state.FailCount = 0
	}
	if !state.LastAttemptAt.IsZero() && now.Sub(state.LastAttemptAt) > s.cfg.AttemptWindow {
		state.FailCount = 0
	}
	return state, nil
}

func (s *Service) recordFailure(ctx context.Context, state *repository.AttemptState) error {
	now := s.now()
	state.FailCount++
	state.LastAttemptAt = now

	result := ErrInvalidPIN
	if state.FailCount >= s.cfg.MaxAttempts {
		state.Locked = true
		state.LockUntil = now.Add(s.cfg.Lockout)
		result = ErrLocked
		s.logger.Warn("authentication locked after repeated failures",
			"fail_count", state.FailCount, "lock_until", state.LockUntil)
	}

	if err := s.attempts.Put(ctx, state); err != nil {
		return fmt.Errorf("recording failed attempt: %w", err)
	}
	return result
}
