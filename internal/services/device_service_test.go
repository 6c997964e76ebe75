package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeviceService(tokens *MockPushTokenRepository, sessions *MockSessionManager) *DeviceService {
	svc := NewDeviceService(tokens, sessions, slog.Default())
	svc.now = func() time.Time { return taskNow }
	return svc
}

func TestDeviceRegister(t *testing.T) {
	var stored *models.PushToken
	tokens := &MockPushTokenRepository{
		UpsertFunc: func(ctx context.Context, token *models.PushToken, now time.Time) (string, bool, error) {
			stored = token
			return "device-1", false, nil
		},
	}
	svc := newTestDeviceService(tokens, &MockSessionManager{})
	session := &models.Session{Token: "tok", User: restrictedUser}

	reg, err := svc.Register(context.Background(), session, " ExponentPushToken[abc] ", strPtr("  "))
	require.NoError(t, err)

	assert.Equal(t, "device-1", reg.TokenID)
	assert.False(t, reg.Created)
	assert.Equal(t, "ExponentPushToken[abc]", stored.ExpoToken)
	assert.Nil(t, stored.DeviceName, "blank names fall back to the stored or default name")
	assert.Equal(t, "tok", *stored.SessionToken)
	assert.Equal(t, restrictedUser.ID, stored.UserID)

	_, err = svc.Register(context.Background(), session, "", nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDeviceUpdateAndDelete_InvalidID(t *testing.T) {
	tokens := &MockPushTokenRepository{
		DeleteOwnedFunc: func(ctx context.Context, id, userID string) error {
			t.Fatal("malformed ids must not reach storage")
			return nil
		},
	}
	svc := newTestDeviceService(tokens, &MockSessionManager{})

	assert.ErrorIs(t, svc.Delete(context.Background(), restrictedUser, "42"), models.ErrNotFound)
	assert.ErrorIs(t, svc.Update(context.Background(), restrictedUser, "42", nil, nil), models.ErrNotFound)
}

func TestDeviceUpdate_NotOwned(t *testing.T) {
	tokens := &MockPushTokenRepository{
		UpdateOwnedFunc: func(ctx context.Context, id, userID string, name *string, valid *bool, now time.Time) error {
			return models.ErrNotFound
		},
	}
	svc := newTestDeviceService(tokens, &MockSessionManager{})

	err := svc.Update(context.Background(), restrictedUser, uuid.NewString(), strPtr("phone"), nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeviceSessionAccess(t *testing.T) {
	sessions := &MockSessionManager{
		ResolveFunc: func(ctx context.Context, token string) (*models.Session, error) {
			switch token {
			case "mine":
				return &models.Session{Token: token, UserID: restrictedUser.ID}, nil
			case "theirs":
				return &models.Session{Token: token, UserID: adminUser.ID}, nil
			}
			return nil, models.ErrNotFound
		},
	}
	tokens := &MockPushTokenRepository{
		InvalidateBySessionFunc: func(ctx context.Context, token string) (int64, error) {
			return 3, nil
		},
	}
	svc := newTestDeviceService(tokens, sessions)
	ctx := context.Background()

	count, err := svc.InvalidateSession(ctx, restrictedUser, "mine")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = svc.InvalidateSession(ctx, restrictedUser, "theirs")
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.ListBySession(ctx, restrictedUser, "missing")
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.ListBySession(ctx, adminUser, "missing")
	assert.NoError(t, err, "admins may inspect any session")

	_, err = svc.ListBySession(ctx, nil, "mine")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}
