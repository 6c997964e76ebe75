package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/littlespace/internal/config"
	"github.com/BradenHooton/littlespace/internal/models"
)

// SessionRepository defines the persistence operations the store needs
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetWithUser(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) (bool, error)
	DeleteIfExpired(ctx context.Context, token string, now time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore issues, resolves and invalidates opaque session tokens
type SessionStore struct {
	repo         SessionRepository
	ttl          time.Duration
	expiryPolicy string
	now          func() time.Time
	logger       *slog.Logger
}

// NewSessionStore creates a store. A zero ttl falls back to seven days.
func NewSessionStore(repo SessionRepository, ttl time.Duration, expiryPolicy string, logger *slog.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if expiryPolicy == "" {
		expiryPolicy = config.ExpiryPolicyKeep
	}
	return &SessionStore{
		repo:         repo,
		ttl:          ttl,
		expiryPolicy: expiryPolicy,
		now:          time.Now,
		logger:       logger,
	}
}

// SetClock overrides the time source
func (s *SessionStore) SetClock(now func() time.Time) {
	s.now = now
}

// Create issues a new session for userID valid for the configured ttl
func (s *SessionStore) Create(ctx context.Context, userID string) (*models.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &models.Session{
		Token:   token,
		UserID:  userID,
		Expires: s.now().UTC().Add(s.ttl),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Resolve returns the session and its owner. Expired rows are returned as-is so
// the caller decides; under the lazy policy they are also removed.
func (s *SessionStore) Resolve(ctx context.Context, token string) (*models.Session, error) {
	session, err := s.repo.GetWithUser(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if s.expiryPolicy == config.ExpiryPolicyLazy && !session.ValidAt(now) {
		if err := s.repo.DeleteIfExpired(ctx, token, now); err != nil {
			s.logger.Warn("failed to delete expired session", slog.String("user_id", session.UserID), slog.Any("error", err))
		}
	}

	return session, nil
}

// Invalidate deletes the session. Unknown tokens are not an error.
func (s *SessionStore) Invalidate(ctx context.Context, token string) error {
	if _, err := s.repo.Delete(ctx, token); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return nil
}

// PurgeExpired removes every expired session
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
