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
	"github.com/go-chi/chi/v5"
)

// DeviceServiceInterface defines push device registration operations
type DeviceServiceInterface interface {
	Register(ctx context.Context, session *models.Session, expoToken string, deviceName *string) (*services.Registration, error)
	List(ctx context.Context, user *models.User) ([]*models.PushToken, error)
	Update(ctx context.Context, user *models.User, id string, deviceName *string, isValid *bool) error
	Delete(ctx context.Context, user *models.User, id string) error
	ListBySession(ctx context.Context, user *models.User, sessionToken string) ([]*models.PushToken, error)
	InvalidateSession(ctx context.Context, user *models.User, sessionToken string) (int64, error)
}

// DeviceHandler handles push notification device requests
type DeviceHandler struct {
	service DeviceServiceInterface
	logger  *slog.Logger
	now     func() time.Time
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(service DeviceServiceInterface, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterDeviceRequest represents the body for registering a device
type RegisterDeviceRequest struct {
	ExpoToken  string  `json:"expoToken" validate:"required,max=255"`
	DeviceName *string `json:"deviceName" validate:"omitempty,max=100"`
}

// UpdateDeviceRequest represents the body for updating a device
type UpdateDeviceRequest struct {
	DeviceName *string `json:"deviceName" validate:"omitempty,max=100"`
	IsValid    *bool   `json:"isValid"`
}

// RegisterDeviceResponse acknowledges a registration
type RegisterDeviceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TokenID string `json:"tokenId"`
}

// DeviceResponse represents a registered device
type DeviceResponse struct {
	ID            string  `json:"id"`
	ExpoToken     string  `json:"expoToken"`
	DeviceName    *string `json:"deviceName"`
	IsValid       bool    `json:"isValid"`
	CreatedAt     string  `json:"createdAt"`
	LastUsed      string  `json:"lastUsed"`
	SessionStatus string  `json:"sessionStatus,omitempty"`
}

// DeviceListResponse wraps a device list
type DeviceListResponse struct {
	Tokens []*DeviceResponse `json:"tokens"`
}

// InvalidateSessionResponse reports how many devices were invalidated
type InvalidateSessionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

func deviceToResponse(token *models.PushToken, sessionStatus string) *DeviceResponse {
	return &DeviceResponse{
		ID:            token.ID,
		ExpoToken:     token.ExpoToken,
		DeviceName:    token.DeviceName,
		IsValid:       token.IsValid,
		CreatedAt:     token.CreatedAt.UTC().Format(time.RFC3339),
		LastUsed:      token.LastUsed.UTC().Format(time.RFC3339),
		SessionStatus: sessionStatus,
	}
}

// RegisterRoutes registers all device routes. Callers must install auth.Middleware first.
func (h *DeviceHandler) RegisterRoutes(router chi.Router) {
	router.Route("/notifications/devices", func(r chi.Router) {
		r.Post("/", h.Register)                                  // POST /notifications/devices
		r.Get("/", h.List)                                       // GET /notifications/devices
		r.Put("/{tokenID}", h.Update)                            // PUT /notifications/devices/{tokenID}
		r.Delete("/{tokenID}", h.Delete)                         // DELETE /notifications/devices/{tokenID}
		r.Get("/session/{sessionToken}", h.ListBySession)        // GET /notifications/devices/session/{sessionToken}
		r.Delete("/session/{sessionToken}", h.InvalidateSession) // DELETE /notifications/devices/session/{sessionToken}
	})
}

// Register links a push token to the caller's session
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeviceRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	reg, err := h.service.Register(r.Context(), auth.SessionFromContext(r.Context()), req.ExpoToken, req.DeviceName)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if reg.Created {
		pkghttp.WriteJSON(w, http.StatusCreated, RegisterDeviceResponse{Success: true, Message: "Device token registered", TokenID: reg.TokenID})
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, RegisterDeviceResponse{Success: true, Message: "Device token updated", TokenID: reg.TokenID})
}

// List returns the caller's devices with the state of their registering session
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.service.List(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	now := h.now()
	resp := DeviceListResponse{Tokens: make([]*DeviceResponse, 0, len(tokens))}
	for _, token := range tokens {
		resp.Tokens = append(resp.Tokens, deviceToResponse(token, token.SessionStatusAt(now)))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Update renames or revalidates one of the caller's devices
func (h *DeviceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateDeviceRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	err := h.service.Update(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "tokenID"), req.DeviceName, req.IsValid)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Device token updated"})
}

// Delete removes one of the caller's devices
func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "tokenID")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Device token deleted"})
}

// ListBySession returns the devices registered by a session (owner or admin)
func (h *DeviceHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.service.ListBySession(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "sessionToken"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := DeviceListResponse{Tokens: make([]*DeviceResponse, 0, len(tokens))}
	for _, token := range tokens {
		resp.Tokens = append(resp.Tokens, deviceToResponse(token, ""))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// InvalidateSession marks a session's devices invalid (owner or admin)
func (h *DeviceHandler) InvalidateSession(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.InvalidateSession(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "sessionToken"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	message := "No tokens found for this session"
	if count > 0 {
		message = "Push notification tokens invalidated"
	}
	pkghttp.WriteJSON(w, http.StatusOK, InvalidateSessionResponse{Success: true, Message: message, Count: count})
}
