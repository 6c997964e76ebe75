package handlers_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/littlespace/internal/handlers"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/BradenHooton/littlespace/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeviceRouter(svc handlers.DeviceServiceInterface, role models.Role) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, handlers.WithSessionContext(req, "user-1", role))
		})
	})
	handlers.NewDeviceHandler(svc, slog.Default()).RegisterRoutes(r)
	return r
}

func TestRegisterDevice_CreatedThenUpdated(t *testing.T) {
	created := true
	var gotSession *models.Session
	svc := &handlers.MockDeviceService{
		RegisterFunc: func(ctx context.Context, session *models.Session, expoToken string, deviceName *string) (*services.Registration, error) {
			gotSession = session
			assert.Equal(t, "ExponentPushToken[abc]", expoToken)
			return &services.Registration{TokenID: "device-1", Created: created}, nil
		},
	}
	router := newDeviceRouter(svc, models.RoleRestricted)
	body := handlers.RegisterDeviceRequest{ExpoToken: "ExponentPushToken[abc]"}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, handlers.NewTestRequest(t, http.MethodPost, "/notifications/devices", body))
	var resp handlers.RegisterDeviceResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "device-1", resp.TokenID)
	assert.Equal(t, "Device token registered", resp.Message)
	require.NotNil(t, gotSession)
	assert.Equal(t, "test-session-token", gotSession.Token)

	created = false
	w = httptest.NewRecorder()
	router.ServeHTTP(w, handlers.NewTestRequest(t, http.MethodPost, "/notifications/devices", body))
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "Device token updated", resp.Message)
}

func TestRegisterDevice_MissingToken(t *testing.T) {
	w := httptest.NewRecorder()
	newDeviceRouter(&handlers.MockDeviceService{}, models.RoleAdmin).
		ServeHTTP(w, handlers.NewTestRequest(t, http.MethodPost, "/notifications/devices", map[string]string{"deviceName": "Pixel"}))

	resp := handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error")
	assert.Equal(t, "expoToken", resp.Details)
}

func TestListDevices_IncludesSessionStatus(t *testing.T) {
	svc := &handlers.MockDeviceService{
		ListFunc: func(ctx context.Context, user *models.User) ([]*models.PushToken, error) {
			assert.Equal(t, "user-1", user.ID)
			return []*models.PushToken{
				{ID: "d1", ExpoToken: "ExponentPushToken[a]", IsValid: true, LastUsed: time.Now()},
			}, nil
		},
	}

	w := httptest.NewRecorder()
	newDeviceRouter(svc, models.RoleRestricted).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications/devices", nil))

	var resp handlers.DeviceListResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.Len(t, resp.Tokens, 1)
	assert.Equal(t, "d1", resp.Tokens[0].ID)
	assert.NotEmpty(t, resp.Tokens[0].SessionStatus)
}

func TestDeleteDevice_NotFound(t *testing.T) {
	svc := &handlers.MockDeviceService{
		DeleteFunc: func(ctx context.Context, user *models.User, id string) error {
			assert.Equal(t, "d9", id)
			return models.ErrNotFound
		},
	}

	w := httptest.NewRecorder()
	newDeviceRouter(svc, models.RoleRestricted).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notifications/devices/d9", nil))
	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}

func TestSessionDevices_ForbiddenForOtherUsers(t *testing.T) {
	svc := &handlers.MockDeviceService{
		ListBySessionFunc: func(ctx context.Context, user *models.User, sessionToken string) ([]*models.PushToken, error) {
			assert.Equal(t, "someone-elses", sessionToken)
			return nil, models.ErrForbidden
		},
		InvalidateSessionFunc: func(ctx context.Context, user *models.User, sessionToken string) (int64, error) {
			return 0, models.ErrForbidden
		},
	}
	router := newDeviceRouter(svc, models.RoleRestricted)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications/devices/session/someone-elses", nil))
	handlers.AssertErrorResponse(t, w, http.StatusForbidden, "forbidden")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notifications/devices/session/someone-elses", nil))
	handlers.AssertErrorResponse(t, w, http.StatusForbidden, "forbidden")
}

func TestInvalidateSessionDevices(t *testing.T) {
	count := int64(2)
	svc := &handlers.MockDeviceService{
		InvalidateSessionFunc: func(ctx context.Context, user *models.User, sessionToken string) (int64, error) {
			return count, nil
		},
	}
	router := newDeviceRouter(svc, models.RoleAdmin)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notifications/devices/session/tok", nil))
	var resp handlers.InvalidateSessionResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, int64(2), resp.Count)
	assert.Equal(t, "Push notification tokens invalidated", resp.Message)

	count = 0
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notifications/devices/session/tok", nil))
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "No tokens found for this session", resp.Message)
}
