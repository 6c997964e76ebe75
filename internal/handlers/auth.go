package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/littlespace/internal/auth"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/BradenHooton/littlespace/internal/services"
	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
)

// AuthServiceInterface defines the interface for sign-in and sign-out
type AuthServiceInterface interface {
	LoginURL() (*services.LoginURL, error)
	DiscordCallback(ctx context.Context, code, state, ipAddress string) (*models.Session, error)
	SignOut(ctx context.Context, sessionToken string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// CallbackRequest represents the OAuth callback body sent by the clients
type CallbackRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state" validate:"required"`
}

// SignOutRequest names the session to end. The bearer token is used when empty.
type SignOutRequest struct {
	SessionToken string `json:"sessionToken"`
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Image    string `json:"image"`
	Role     string `json:"role"`
	LastSeen string `json:"lastSeen"`
}

// SessionResponse is returned after a successful sign-in
type SessionResponse struct {
	SessionToken string        `json:"sessionToken"`
	UserID       string        `json:"userId"`
	Expires      string        `json:"expires"`
	User         *UserResponse `json:"user"`
}

// SuccessResponse is a bare acknowledgement
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Username: user.Username,
		Image:    user.Image,
		Role:     string(user.Role),
		LastSeen: user.LastSeen.UTC().Format(time.RFC3339),
	}
}

// Login returns the Discord authorization URL and its signed state
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	login, err := h.service.LoginURL()
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, login)
}

// DiscordCallback exchanges the authorization code and opens a session
func (h *AuthHandler) DiscordCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	session, err := h.service.DiscordCallback(r.Context(), req.Code, req.State, ipAddress)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		SessionToken: session.Token,
		UserID:       session.UserID,
		Expires:      session.Expires.UTC().Format(time.RFC3339),
		User:         userModelToResponse(session.User),
	})
}

// SignOut ends a session. Unknown or already ended sessions still succeed.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req SignOutRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	token := req.SessionToken
	if token == "" {
		token, _ = auth.ParseBearer(r.Header.Get("Authorization"))
	}

	if err := h.service.SignOut(r.Context(), token); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}
