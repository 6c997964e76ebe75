package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/littlespace/internal/config"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(repo *MockSessionRepository, users LastSeenToucher, recorder OutcomeRecorder) *Authenticator {
	store := NewSessionStore(repo, time.Hour, config.ExpiryPolicyKeep, slog.Default())
	store.SetClock(func() time.Time { return fixedNow })

	authn := NewAuthenticator(store, users, recorder, AuthenticatorConfig{TouchLastSeen: true}, slog.Default())
	authn.SetClock(func() time.Time { return fixedNow })
	return authn
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"", "", false},
		{"bearer abc", "", false},
		{"Basic abc", "", false},
		{"Bearerabc", "", false},
		{"abc", "", false},
	}

	for _, tt := range tests {
		token, ok := ParseBearer(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	repo := &MockSessionRepository{
		GetWithUserFunc: func(ctx context.Context, token string) (*models.Session, error) {
			return newTestSession(token, models.RoleRestricted, fixedNow.Add(time.Hour)), nil
		},
	}
	toucher := &MockLastSeenToucher{}
	recorder := &recordingOutcomes{}
	authn := newTestAuthenticator(repo, toucher, recorder)

	session, err := authn.Authenticate(context.Background(), "Bearer tok")
	require.NoError(t, err)

	assert.Equal(t, "tok", session.Token)
	assert.Equal(t, models.RoleRestricted, session.User.Role)
	assert.Equal(t, fixedNow, session.User.LastSeen)
	assert.Equal(t, 1, toucher.calls)
	assert.Equal(t, []string{OutcomeAuthenticated}, recorder.outcomes)
}

func TestAuthenticate_MissingOrMalformedHeader(t *testing.T) {
	lookups := 0
	repo := &MockSessionRepository{
		GetWithUserFunc: func(ctx context.Context, token string) (*models.Session, error) {
			lookups++
			return nil, models.ErrNotFound
		},
	}
	authn := newTestAuthenticator(repo, nil, nil)

	for _, header := range []string{"", "Bearer ", "Token abc", "bearer abc"} {
		_, err := authn.Authenticate(context.Background(), header)
		assert.ErrorIs(t, err, models.ErrUnauthenticated, header)
	}
	assert.Zero(t, lookups, "malformed headers never reach storage")
}

func TestAuthenticate_UnknownToken(t *testing.T) {
	recorder := &recordingOutcomes{}
	authn := newTestAuthenticator(&MockSessionRepository{}, nil, recorder)

	session, err := authn.Authenticate(context.Background(), "Bearer does-not-exist")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.Equal(t, []string{OutcomeUnknown}, recorder.outcomes)
}

func TestAuthenticate_ExpiredSession(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
	}{
		{"expired an hour ago", fixedNow.Add(-time.Hour)},
		{"expires exactly now", fixedNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockSessionRepository{
				GetWithUserFunc: func(ctx context.Context, token string) (*models.Session, error) {
					return newTestSession(token, models.RoleAdmin, tt.expires), nil
				},
			}
			toucher := &MockLastSeenToucher{}
			authn := newTestAuthenticator(repo, toucher, nil)

			session, err := authn.Authenticate(context.Background(), "Bearer tok")
			assert.Nil(t, session)
			assert.ErrorIs(t, err, models.ErrUnauthenticated)
			assert.Zero(t, toucher.calls)
		})
	}
}

func TestAuthenticate_StorageFailureFailsClosed(t *testing.T) {
	repo := &MockSessionRepository{
		GetWithUserFunc: func(ctx context.Context, token string) (*models.Session, error) {
			return nil, errors.New("connection refused")
		},
	}
	recorder := &recordingOutcomes{}
	authn := newTestAuthenticator(repo, nil, recorder)

	session, err := authn.Authenticate(context.Background(), "Bearer tok")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, models.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, models.ErrUnauthenticated)
	assert.Equal(t, []string{OutcomeError}, recorder.outcomes)
}

func TestAuthenticate_LastSeenFailureIgnored(t *testing.T) {
	repo := &MockSessionRepository{
		GetWithUserFunc: func(ctx context.Context, token string) (*models.Session, error) {
			return newTestSession(token, models.RoleAdmin, fixedNow.Add(time.Hour)), nil
		},
	}
	toucher := &MockLastSeenToucher{
		TouchLastSeenFunc: func(ctx context.Context, id string, seenAt time.Time) error {
			return models.ErrStorageUnavailable
		},
	}
	authn := newTestAuthenticator(repo, toucher, nil)

	session, err := authn.Authenticate(context.Background(), "Bearer tok")
	require.NoError(t, err)
	assert.NotNil(t, session)
}

func TestAuthorize(t *testing.T) {
	admin := &models.User{ID: "a", Role: models.RoleAdmin}
	restricted := &models.User{ID: "r", Role: models.RoleRestricted}

	got, err := Authorize(admin, AdminOnly)
	require.NoError(t, err)
	assert.Same(t, admin, got)

	_, err = Authorize(restricted, AdminOnly)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = Authorize(restricted, TaskViewers)
	assert.NoError(t, err)

	_, err = Authorize(nil, TaskViewers)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = Authorize(&models.User{Role: "tiny"}, TaskViewers)
	assert.ErrorIs(t, err, models.ErrForbidden)
}
