package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/littlespace/internal/models"
)

const bearerPrefix = "Bearer "

// Authentication outcomes reported to metrics
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeMissing       = "missing"
	OutcomeUnknown       = "unknown"
	OutcomeExpired       = "expired"
	OutcomeError         = "error"
)

// SessionResolver looks up a session with its owner
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// LastSeenToucher records user activity
type LastSeenToucher interface {
	TouchLastSeen(ctx context.Context, id string, seenAt time.Time) error
}

// OutcomeRecorder counts authentication results
type OutcomeRecorder interface {
	RecordAuthentication(outcome string)
}

// AuthenticatorConfig holds optional Authenticator behaviour
type AuthenticatorConfig struct {
	TouchLastSeen   bool
	LastSeenTimeout time.Duration
}

// Authenticator turns an Authorization header into a live session
type Authenticator struct {
	sessions SessionResolver
	users    LastSeenToucher
	recorder OutcomeRecorder
	cfg      AuthenticatorConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. users and recorder may be nil.
func NewAuthenticator(sessions SessionResolver, users LastSeenToucher, recorder OutcomeRecorder, cfg AuthenticatorConfig, logger *slog.Logger) *Authenticator {
	if cfg.LastSeenTimeout <= 0 {
		cfg.LastSeenTimeout = 2 * time.Second
	}
	return &Authenticator{
		sessions: sessions,
		users:    users,
		recorder: recorder,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock overrides the time source
func (a *Authenticator) SetClock(now func() time.Time) {
	a.now = now
}

// ParseBearer extracts the token from a "Bearer <token>" header value.
// The prefix is matched exactly.
func ParseBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate validates rawHeader and returns the session with its user.
// Missing, malformed, unknown and expired credentials yield ErrUnauthenticated.
// Storage failures yield ErrStorageUnavailable and never authenticate.
func (a *Authenticator) Authenticate(ctx context.Context, rawHeader string) (*models.Session, error) {
	token, ok := ParseBearer(rawHeader)
	if !ok {
		a.record(OutcomeMissing)
		return nil, models.ErrUnauthenticated
	}

	session, err := a.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			a.record(OutcomeUnknown)
			return nil, models.ErrUnauthenticated
		}
		a.record(OutcomeError)
		a.logger.Error("session lookup failed", slog.Any("error", err))
		if errors.Is(err, models.ErrStorageUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
	}

	now := a.now()
	if !session.ValidAt(now) {
		a.record(OutcomeExpired)
		return nil, models.ErrUnauthenticated
	}

	if session.User == nil {
		a.record(OutcomeUnknown)
		return nil, models.ErrUnauthenticated
	}

	a.touchLastSeen(ctx, session.User, now)
	a.record(OutcomeAuthenticated)

	return session, nil
}

// touchLastSeen is best-effort; failures never change the authentication result
func (a *Authenticator) touchLastSeen(ctx context.Context, user *models.User, now time.Time) {
	if !a.cfg.TouchLastSeen || a.users == nil {
		return
	}

	touchCtx, cancel := context.WithTimeout(ctx, a.cfg.LastSeenTimeout)
	defer cancel()

	if err := a.users.TouchLastSeen(touchCtx, user.ID, now.UTC()); err != nil {
		a.logger.Warn("failed to update last seen", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	user.LastSeen = now.UTC()
}

func (a *Authenticator) record(outcome string) {
	if a.recorder != nil {
		a.recorder.RecordAuthentication(outcome)
	}
}
