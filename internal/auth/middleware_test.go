package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/littlespace/internal/models"
	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthenticator returns a fixed result
type stubAuthenticator struct {
	session *models.Session
	err     error
	header  string
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, rawHeader string) (*models.Session, error) {
	s.header = rawHeader
	return s.session, s.err
}

func okHandler(t *testing.T, reached *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestMiddleware_InjectsSession(t *testing.T) {
	session := newTestSession("tok", models.RoleAdmin, fixedNow.Add(time.Hour))
	stub := &stubAuthenticator{session: session}

	var seen *models.User
	handler := Middleware(stub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bearer tok", stub.header)
	require.NotNil(t, seen)
	assert.Equal(t, session.User.ID, seen.ID)
}

func TestMiddleware_Unauthenticated(t *testing.T) {
	reached := false
	handler := Middleware(&stubAuthenticator{err: models.ErrUnauthenticated})(okHandler(t, &reached))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Error)
}

func TestMiddleware_StorageFailureReturns503(t *testing.T) {
	reached := false
	handler := Middleware(&stubAuthenticator{err: models.ErrStorageUnavailable})(okHandler(t, &reached))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	assert.False(t, reached)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "storage_unavailable", decodeError(t, w).Error)
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name     string
		role     models.Role
		noUser   bool
		expected int
	}{
		{"admin allowed", models.RoleAdmin, false, http.StatusOK},
		{"restricted forbidden", models.RoleRestricted, false, http.StatusForbidden},
		{"no session", "", true, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := RequireRoles(models.RoleAdmin)(okHandler(t, &reached))

			req := httptest.NewRequest(http.MethodPost, "/tasks", nil)
			if !tt.noUser {
				req = req.WithContext(ContextWithSession(req.Context(), newTestSession("tok", tt.role, fixedNow)))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			assert.Equal(t, tt.expected == http.StatusOK, reached)
		})
	}
}

// recordedDenials collects LogAccessDenied calls
type recordedDenials []string

func (d *recordedDenials) LogAccessDenied(ctx context.Context, userID, role, operation string) {
	*d = append(*d, userID+"/"+role+"/"+operation)
}

func TestRequireRolesFor_ReportsDenials(t *testing.T) {
	var denials recordedDenials
	reached := false
	handler := RequireRolesFor(&denials, "create", models.RoleAdmin)(okHandler(t, &reached))

	req := httptest.NewRequest(http.MethodPost, "/tasks", nil)
	req = req.WithContext(ContextWithSession(req.Context(), newTestSession("tok", models.RoleRestricted, fixedNow)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)
	assert.Equal(t, recordedDenials{"user-1/restricted/create"}, denials)

	// unauthenticated requests are not denials
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tasks", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, denials, 1)

	req = httptest.NewRequest(http.MethodPost, "/tasks", nil)
	req = req.WithContext(ContextWithSession(req.Context(), newTestSession("tok", models.RoleAdmin, fixedNow)))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)
	assert.Len(t, denials, 1)
}

func TestContextHelpers_Empty(t *testing.T) {
	assert.Nil(t, SessionFromContext(context.Background()))
	assert.Nil(t, UserFromContext(context.Background()))
}
