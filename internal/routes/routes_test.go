package routes_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/littlespace/internal/handlers"
	"github.com/BradenHooton/littlespace/internal/middleware"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/BradenHooton/littlespace/internal/routes"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type tokenAuthenticator map[string]models.Role

func (a tokenAuthenticator) Authenticate(ctx context.Context, rawHeader string) (*models.Session, error) {
	role, ok := a[rawHeader]
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	return &models.Session{Token: "tok", UserID: "u1", User: &models.User{ID: "u1", Role: role}}, nil
}

type healthyDB struct{}

func (healthyDB) HealthCheck(ctx context.Context) error { return nil }

func newTestRouter() http.Handler {
	logger := slog.Default()
	router := chi.NewRouter()
	routes.RegisterRoutes(router, routes.Dependencies{
		AuthHandler:    handlers.NewAuthHandler(&handlers.MockAuthService{}, nil, logger),
		TaskHandler:    handlers.NewTaskHandler(&handlers.MockTaskService{}, logger),
		DeviceHandler:  handlers.NewDeviceHandler(&handlers.MockDeviceService{}, logger),
		Authenticator:  tokenAuthenticator{"Bearer admin": models.RoleAdmin, "Bearer kid": models.RoleRestricted},
		Database:       healthyDB{},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("# metrics")) }),
		LoginRateLimit: middleware.RateLimitConfig{RequestsPerMinute: 2},
		Logger:         logger,
	})
	return router
}

func TestRoutes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name     string
		method   string
		path     string
		auth     string
		expected int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics is public", http.MethodGet, "/metrics", "", http.StatusOK},
		{"login url is public", http.MethodGet, "/auth/discord/login", "", http.StatusOK},
		{"signout is public", http.MethodPost, "/auth/signout", "", http.StatusOK},
		{"tasks need a session", http.MethodGet, "/tasks", "", http.StatusUnauthorized},
		{"unknown token rejected", http.MethodGet, "/tasks", "Bearer nope", http.StatusUnauthorized},
		{"restricted lists tasks", http.MethodGet, "/tasks", "Bearer kid", http.StatusOK},
		{"restricted cannot create", http.MethodPost, "/tasks", "Bearer kid", http.StatusForbidden},
		{"restricted cannot delete", http.MethodDelete, "/tasks/6f1c2b8e-3d4a-4c5b-9e8f-0a1b2c3d4e5f", "Bearer kid", http.StatusForbidden},
		{"me with session", http.MethodGet, "/auth/me", "Bearer admin", http.StatusOK},
		{"devices need a session", http.MethodGet, "/notifications/devices", "", http.StatusUnauthorized},
		{"devices with session", http.MethodGet, "/notifications/devices", "Bearer kid", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestRoutes_CallbackIsRateLimited(t *testing.T) {
	router := newTestRouter()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := handlers.NewTestRequest(t, http.MethodPost, "/auth/discord/callback", handlers.CallbackRequest{Code: "c", State: "s"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	// the mock rejects every identity
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}
