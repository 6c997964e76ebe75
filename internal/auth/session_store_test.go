package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/littlespace/internal/config"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_Create(t *testing.T) {
	var stored *models.Session
	repo := &MockSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			stored = session
			return nil
		},
	}

	store := NewSessionStore(repo, 7*24*time.Hour, config.ExpiryPolicyKeep, slog.Default())
	store.SetClock(func() time.Time { return fixedNow })

	session, err := store.Create(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Same(t, stored, session)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour), session.Expires)

	parsed, err := uuid.Parse(session.Token)
	require.NoError(t, err, "token should be a UUID")
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestSessionStore_Create_TokensAreUnique(t *testing.T) {
	store := NewSessionStore(&MockSessionRepository{}, 0, "", slog.Default())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session, err := store.Create(context.Background(), "user-1")
		require.NoError(t, err)
		assert.False(t, seen[session.Token])
		seen[session.Token] = true
	}
}

func TestSessionStore_Create_StorageError(t *testing.T) {
	repo := &MockSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			return models.ErrStorageUnavailable
		},
	}
	store := NewSessionStore(repo, time.Hour, config.ExpiryPolicyKeep, slog.Default())

	session, err := store.Create(context.Background(), "user-1")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, models.ErrStorageUnavailable)
}

func TestSessionStore_Resolve_KeepPolicyLeavesExpiredRows(t *testing.T) {
	deleted := false
	repo := &MockSessionRepository{
		GetWithUserFunc: func(ctx context.Context, token string) (*models.Session, error) {
			return newTestSession(token, models.RoleAdmin, fixedNow.Add(-time.Minute)), nil
		},
		DeleteIfExpiredFunc: func(ctx context.Context, token string, now time.Time) error {
			deleted = true
			return nil
		},
	}
	store := NewSessionStore(repo, time.Hour, config.ExpiryPolicyKeep, slog.Default())
	store.SetClock(func() time.Time { return fixedNow })

	session, err := store.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, session)
	assert.False(t, deleted)
}

func TestSessionStore_Resolve_LazyPolicyDeletesExpiredRows(t *testing.T) {
	var deletedToken string
	repo := &MockSessionRepository{
		GetWithUserFunc: func(ctx context.Context, token string) (*models.Session, error) {
			return newTestSession(token, models.RoleAdmin, fixedNow), nil
		},
		DeleteIfExpiredFunc: func(ctx context.Context, token string, now time.Time) error {
			deletedToken = token
			return errors.New("ignored")
		},
	}
	store := NewSessionStore(repo, time.Hour, config.ExpiryPolicyLazy, slog.Default())
	store.SetClock(func() time.Time { return fixedNow })

	session, err := store.Resolve(context.Background(), "tok")
	require.NoError(t, err, "delete failures are logged, not returned")
	assert.NotNil(t, session)
	assert.Equal(t, "tok", deletedToken)
}

func TestSessionStore_Invalidate_Idempotent(t *testing.T) {
	rows := map[string]bool{"tok": true}
	repo := &MockSessionRepository{
		DeleteFunc: func(ctx context.Context, token string) (bool, error) {
			existed := rows[token]
			delete(rows, token)
			return existed, nil
		},
	}
	store := NewSessionStore(repo, time.Hour, config.ExpiryPolicyKeep, slog.Default())

	assert.NoError(t, store.Invalidate(context.Background(), "tok"))
	assert.NoError(t, store.Invalidate(context.Background(), "tok"))
	assert.NoError(t, store.Invalidate(context.Background(), "never-existed"))
}

func TestSessionStore_PurgeExpired(t *testing.T) {
	var cutoff time.Time
	repo := &MockSessionRepository{
		DeleteExpiredFunc: func(ctx context.Context, now time.Time) (int64, error) {
			cutoff = now
			return 3, nil
		},
	}
	store := NewSessionStore(repo, time.Hour, config.ExpiryPolicySweep, slog.Default())
	store.SetClock(func() time.Time { return fixedNow })

	n, err := store.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, fixedNow, cutoff)
}
