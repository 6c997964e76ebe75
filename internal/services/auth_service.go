package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/BradenHooton/littlespace/internal/models"
	pkglogger "github.com/BradenHooton/littlespace/pkg/logger"
)

// IdentityProvider performs the OAuth authorization code flow
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.ExternalIdentity, *models.Account, error)
}

// StateSigner issues and checks OAuth state values
type StateSigner interface {
	Issue(provider string) (string, error)
	Verify(state, provider string) error
}

// SessionManager creates and invalidates sessions
type SessionManager interface {
	Create(ctx context.Context, userID string) (*models.Session, error)
	Invalidate(ctx context.Context, token string) error
}

// AccountRepository defines the interface for external account links
type AccountRepository interface {
	GetByProvider(ctx context.Context, provider, providerAccountID string) (*models.Account, error)
	UpdateTokens(ctx context.Context, account *models.Account) error
	CreateWithUser(ctx context.Context, user *models.User, account *models.Account) (*models.User, error)
}

// ProfileRepository refreshes a user's profile from the identity provider
type ProfileRepository interface {
	UpdateProfile(ctx context.Context, id, name, image string, seenAt time.Time) (*models.User, error)
}

// SessionDeviceInvalidator marks push tokens registered by a session as invalid
type SessionDeviceInvalidator interface {
	InvalidateBySession(ctx context.Context, sessionToken string) (int64, error)
}

// AuthServiceConfig carries the sign-in allow-lists
type AuthServiceConfig struct {
	AllowedIDs []string
	AdminIDs   []string
}

// LoginURL is the provider redirect for a new sign-in
type LoginURL struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// AuthService handles sign-in through Discord and sign-out
type AuthService struct {
	provider    IdentityProvider
	states      StateSigner
	sessions    SessionManager
	accounts    AccountRepository
	users       ProfileRepository
	devices     SessionDeviceInvalidator
	cfg         AuthServiceConfig
	now         func() time.Time
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	provider IdentityProvider,
	states StateSigner,
	sessions SessionManager,
	accounts AccountRepository,
	users ProfileRepository,
	devices SessionDeviceInvalidator,
	cfg AuthServiceConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	if len(cfg.AllowedIDs) == 0 {
		logger.Warn("sign-in allow-list is empty; every login will be rejected")
	}
	return &AuthService{
		provider:    provider,
		states:      states,
		sessions:    sessions,
		accounts:    accounts,
		users:       users,
		devices:     devices,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SetClock overrides the time source
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// LoginURL returns the provider authorization URL with a freshly signed state
func (s *AuthService) LoginURL() (*LoginURL, error) {
	state, err := s.states.Issue(models.ProviderDiscord)
	if err != nil {
		s.logger.Error("failed to issue oauth state", slog.Any("error", err))
		return nil, fmt.Errorf("issue oauth state: %w", err)
	}
	return &LoginURL{URL: s.provider.AuthCodeURL(state), State: state}, nil
}

// DiscordCallback completes a sign-in. The external identity must be on the
// allow-list. Returns a new session carrying its user.
func (s *AuthService) DiscordCallback(ctx context.Context, code, state, ipAddress string) (*models.Session, error) {
	if code == "" {
		return nil, models.NewValidationError("code", "is required")
	}
	if state == "" {
		return nil, models.NewValidationError("state", "is required")
	}

	if err := s.states.Verify(state, models.ProviderDiscord); err != nil {
		s.loginFailed(ctx, ipAddress, "invalid_state")
		return nil, models.ErrInvalidState
	}

	identity, account, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("discord exchange failed", slog.Any("error", err))
		s.loginFailed(ctx, ipAddress, "provider_error")
		if errors.Is(err, models.ErrIdentityProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrIdentityProvider, err)
	}

	if !slices.Contains(s.cfg.AllowedIDs, identity.ProviderAccountID) {
		s.logger.Info("sign-in rejected: identity not allow-listed")
		s.loginFailed(ctx, ipAddress, "not_allow_listed")
		return nil, models.ErrNotAllowListed
	}

	user, err := s.linkUser(ctx, identity, account)
	if err != nil {
		s.logger.Error("failed to link discord account", slog.Any("error", err))
		return nil, err
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to create session", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, err
	}
	session.User = user

	s.logger.Info("user signed in", slog.String("user_id", user.ID), slog.String("role", string(user.Role)))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogin,
		UserID:    user.ID,
		Provider:  models.ProviderDiscord,
		IPAddress: ipAddress,
		Success:   true,
	})

	return session, nil
}

// linkUser refreshes an existing account link or creates the user and link together.
// A new user is admin only when listed in AdminIDs; roles of existing users are never changed.
func (s *AuthService) linkUser(ctx context.Context, identity *models.ExternalIdentity, account *models.Account) (*models.User, error) {
	existing, err := s.accounts.GetByProvider(ctx, models.ProviderDiscord, identity.ProviderAccountID)
	switch {
	case err == nil:
		account.UserID = existing.UserID
		if err := s.accounts.UpdateTokens(ctx, account); err != nil {
			return nil, err
		}
		return s.users.UpdateProfile(ctx, existing.UserID, identity.DisplayName(), identity.Avatar, s.now().UTC())
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	role := models.RoleRestricted
	if slices.Contains(s.cfg.AdminIDs, identity.ProviderAccountID) {
		role = models.RoleAdmin
	}

	user := &models.User{
		Name:     identity.DisplayName(),
		Email:    identity.Email,
		Username: identity.Username,
		Image:    identity.Avatar,
		Role:     role,
		LastSeen: s.now().UTC(),
		Metadata: models.Metadata{},
	}

	created, err := s.accounts.CreateWithUser(ctx, user, account)
	if err != nil {
		return nil, err
	}

	details := map[string]string{
		"role":     string(created.Role),
		"provider": models.ProviderDiscord,
	}
	if created.Email != "" {
		details["email"] = pkglogger.SanitizedEmail(created.Email)
	}
	s.auditLogger.LogAccountAction(ctx, "user_created", created.ID, details)
	return created, nil
}

// SignOut invalidates the session and the push tokens it registered.
// Signing out an unknown or already invalidated session succeeds.
func (s *AuthService) SignOut(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	count, err := s.devices.InvalidateBySession(ctx, sessionToken)
	if err != nil {
		s.logger.Error("failed to invalidate push tokens", slog.Any("error", err))
		return err
	}

	if err := s.sessions.Invalidate(ctx, sessionToken); err != nil {
		s.logger.Error("failed to invalidate session", slog.Any("error", err))
		return err
	}

	s.logger.Info("session signed out",
		slog.String("session", pkglogger.RedactToken(sessionToken)),
		slog.Int64("push_tokens_invalidated", count),
	)
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSignOut,
		Success:   true,
		Metadata:  map[string]string{"session": pkglogger.RedactToken(sessionToken)},
	})
	return nil
}

func (s *AuthService) loginFailed(ctx context.Context, ipAddress, reason string) {
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventLogin,
		Provider:      models.ProviderDiscord,
		IPAddress:     ipAddress,
		Success:       false,
		FailureReason: reason,
	})
}
