package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/littlespace/internal/models"
	pkglogger "github.com/BradenHooton/littlespace/pkg/logger"
)

// PushTokenRepository defines the interface for device token data access
type PushTokenRepository interface {
	Upsert(ctx context.Context, token *models.PushToken, now time.Time) (string, bool, error)
	ListByUser(ctx context.Context, userID string) ([]*models.PushToken, error)
	ListBySession(ctx context.Context, sessionToken string) ([]*models.PushToken, error)
	UpdateOwned(ctx context.Context, id, userID string, deviceName *string, isValid *bool, now time.Time) error
	DeleteOwned(ctx context.Context, id, userID string) error
	InvalidateBySession(ctx context.Context, sessionToken string) (int64, error)
}

// SessionLookup finds a session by token regardless of expiry
type SessionLookup interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// Registration is the result of registering a device
type Registration struct {
	TokenID string
	Created bool
}

// DeviceService manages push notification device registrations
type DeviceService struct {
	tokens   PushTokenRepository
	sessions SessionLookup
	now      func() time.Time
	logger   *slog.Logger
}

// NewDeviceService creates a new DeviceService
func NewDeviceService(tokens PushTokenRepository, sessions SessionLookup, logger *slog.Logger) *DeviceService {
	return &DeviceService{
		tokens:   tokens,
		sessions: sessions,
		now:      time.Now,
		logger:   logger,
	}
}

// Register links an Expo push token to the caller and the session that registered it
func (s *DeviceService) Register(ctx context.Context, session *models.Session, expoToken string, deviceName *string) (*Registration, error) {
	if session == nil || session.User == nil {
		return nil, models.ErrUnauthenticated
	}

	expoToken = strings.TrimSpace(expoToken)
	if expoToken == "" {
		return nil, models.NewValidationError("expoToken", "is required")
	}
	if deviceName != nil && strings.TrimSpace(*deviceName) == "" {
		deviceName = nil
	}

	token := &models.PushToken{
		UserID:       session.User.ID,
		ExpoToken:    expoToken,
		DeviceName:   deviceName,
		SessionToken: &session.Token,
	}

	id, created, err := s.tokens.Upsert(ctx, token, s.now().UTC())
	if err != nil {
		s.logger.Error("failed to register device", slog.String("user_id", session.User.ID), slog.Any("error", err))
		return nil, err
	}

	s.logger.Info("device registered",
		slog.String("user_id", session.User.ID),
		slog.String("token_id", id),
		slog.Bool("created", created),
	)
	return &Registration{TokenID: id, Created: created}, nil
}

// List returns the caller's devices, most recently used first
func (s *DeviceService) List(ctx context.Context, user *models.User) ([]*models.PushToken, error) {
	if user == nil {
		return nil, models.ErrUnauthenticated
	}

	tokens, err := s.tokens.ListByUser(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to list devices", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, err
	}
	return tokens, nil
}

// Update renames or revalidates one of the caller's devices.
// A device owned by someone else is reported as not found.
func (s *DeviceService) Update(ctx context.Context, user *models.User, id string, deviceName *string, isValid *bool) error {
	if user == nil {
		return models.ErrUnauthenticated
	}
	if !validID(id) {
		return models.ErrNotFound
	}

	if err := s.tokens.UpdateOwned(ctx, id, user.ID, deviceName, isValid, s.now().UTC()); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to update device", slog.String("token_id", id), slog.Any("error", err))
		}
		return err
	}
	return nil
}

// Delete removes one of the caller's devices
func (s *DeviceService) Delete(ctx context.Context, user *models.User, id string) error {
	if user == nil {
		return models.ErrUnauthenticated
	}
	if !validID(id) {
		return models.ErrNotFound
	}

	if err := s.tokens.DeleteOwned(ctx, id, user.ID); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to delete device", slog.String("token_id", id), slog.Any("error", err))
		}
		return err
	}

	s.logger.Info("device deleted", slog.String("user_id", user.ID), slog.String("token_id", id))
	return nil
}

// ListBySession returns the devices registered by a session. Admins may read
// any session; other users only their own.
func (s *DeviceService) ListBySession(ctx context.Context, user *models.User, sessionToken string) ([]*models.PushToken, error) {
	if err := s.canManageSession(ctx, user, sessionToken); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.ListBySession(ctx, sessionToken)
	if err != nil {
		s.logger.Error("failed to list session devices", slog.Any("error", err))
		return nil, err
	}
	return tokens, nil
}

// InvalidateSession marks every device registered by a session invalid and
// returns how many were changed
func (s *DeviceService) InvalidateSession(ctx context.Context, user *models.User, sessionToken string) (int64, error) {
	if err := s.canManageSession(ctx, user, sessionToken); err != nil {
		return 0, err
	}

	count, err := s.tokens.InvalidateBySession(ctx, sessionToken)
	if err != nil {
		s.logger.Error("failed to invalidate session devices", slog.Any("error", err))
		return 0, err
	}

	s.logger.Info("session devices invalidated",
		slog.String("session", pkglogger.RedactToken(sessionToken)),
		slog.Int64("count", count),
	)
	return count, nil
}

func (s *DeviceService) canManageSession(ctx context.Context, user *models.User, sessionToken string) error {
	if user == nil {
		return models.ErrUnauthenticated
	}
	if user.Role == models.RoleAdmin {
		return nil
	}

	session, err := s.sessions.Resolve(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrForbidden
		}
		return err
	}
	if session.UserID != user.ID {
		return models.ErrForbidden
	}
	return nil
}
