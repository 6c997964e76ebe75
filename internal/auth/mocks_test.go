package auth

import (
	"context"
	"time"

	"github.com/BradenHooton/littlespace/internal/models"
)

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc          func(ctx context.Context, session *models.Session) error
	GetWithUserFunc     func(ctx context.Context, token string) (*models.Session, error)
	DeleteFunc          func(ctx context.Context, token string) (bool, error)
	DeleteIfExpiredFunc func(ctx context.Context, token string, now time.Time) error
	DeleteExpiredFunc   func(ctx context.Context, now time.Time) (int64, error)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) GetWithUser(ctx context.Context, token string) (*models.Session, error) {
	if m.GetWithUserFunc != nil {
		return m.GetWithUserFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, token)
	}
	return false, nil
}

func (m *MockSessionRepository) DeleteIfExpired(ctx context.Context, token string, now time.Time) error {
	if m.DeleteIfExpiredFunc != nil {
		return m.DeleteIfExpiredFunc(ctx, token, now)
	}
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now)
	}
	return 0, nil
}

// MockLastSeenToucher implements LastSeenToucher for testing
type MockLastSeenToucher struct {
	TouchLastSeenFunc func(ctx context.Context, id string, seenAt time.Time) error
	calls             int
}

func (m *MockLastSeenToucher) TouchLastSeen(ctx context.Context, id string, seenAt time.Time) error {
	m.calls++
	if m.TouchLastSeenFunc != nil {
		return m.TouchLastSeenFunc(ctx, id, seenAt)
	}
	return nil
}

// recordingOutcomes captures authentication outcomes
type recordingOutcomes struct {
	outcomes []string
}

func (r *recordingOutcomes) RecordAuthentication(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestSession(token string, role models.Role, expires time.Time) *models.Session {
	return &models.Session{
		Token:   token,
		UserID:  "user-1",
		Expires: expires,
		User:    &models.User{ID: "user-1", Name: "Test User", Role: role, Metadata: models.Metadata{}},
	}
}
