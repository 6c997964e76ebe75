package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/littlespace/internal/auth"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/BradenHooton/littlespace/internal/services"
	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext attaches an authenticated session for a user with role
func WithSessionContext(req *http.Request, userID string, role models.Role) *http.Request {
	session := &models.Session{
		Token:   "test-session-token",
		UserID:  userID,
		Expires: time.Now().Add(time.Hour),
		User:    &models.User{ID: userID, Name: "Test User", Role: role, Metadata: models.Metadata{}},
	}
	return req.WithContext(auth.ContextWithSession(req.Context(), session))
}

// WithChiRouteContext sets chi route parameters on the request
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockTaskService implements TaskService for testing
type MockTaskService struct {
	CreateTaskFunc        func(ctx context.Context, actor *models.User, input services.CreateTaskInput) (*models.Task, error)
	EditTaskFunc          func(ctx context.Context, actor *models.User, taskID string, input services.EditTaskInput) (*models.Task, error)
	DeleteTaskFunc        func(ctx context.Context, actor *models.User, taskID string) (*models.Task, error)
	UpdateStatusFunc      func(ctx context.Context, actor *models.User, taskID, status string) (*models.Task, error)
	GetTaskFunc           func(ctx context.Context, actor *models.User, taskID string) (*models.TaskView, error)
	ListRelevantTasksFunc func(ctx context.Context, actor *models.User) ([]models.TaskView, error)
	RecordLastSeenFunc    func(ctx context.Context, actor *models.User, timestamp *string) (string, error)
	GetLastSeenFunc       func(ctx context.Context, actor *models.User) (*string, error)
}

func (m *MockTaskService) CreateTask(ctx context.Context, actor *models.User, input services.CreateTaskInput) (*models.Task, error) {
	if m.CreateTaskFunc != nil {
		return m.CreateTaskFunc(ctx, actor, input)
	}
	return nil, models.ErrForbidden
}

func (m *MockTaskService) EditTask(ctx context.Context, actor *models.User, taskID string, input services.EditTaskInput) (*models.Task, error) {
	if m.EditTaskFunc != nil {
		return m.EditTaskFunc(ctx, actor, taskID, input)
	}
	return nil, models.ErrForbidden
}

func (m *MockTaskService) DeleteTask(ctx context.Context, actor *models.User, taskID string) (*models.Task, error) {
	if m.DeleteTaskFunc != nil {
		return m.DeleteTaskFunc(ctx, actor, taskID)
	}
	return nil, nil
}

func (m *MockTaskService) UpdateStatus(ctx context.Context, actor *models.User, taskID, status string) (*models.Task, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, actor, taskID, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockTaskService) GetTask(ctx context.Context, actor *models.User, taskID string) (*models.TaskView, error) {
	if m.GetTaskFunc != nil {
		return m.GetTaskFunc(ctx, actor, taskID)
	}
	return nil, models.ErrNotFound
}

func (m *MockTaskService) ListRelevantTasks(ctx context.Context, actor *models.User) ([]models.TaskView, error) {
	if m.ListRelevantTasksFunc != nil {
		return m.ListRelevantTasksFunc(ctx, actor)
	}
	return []models.TaskView{}, nil
}

func (m *MockTaskService) RecordLastSeen(ctx context.Context, actor *models.User, timestamp *string) (string, error) {
	if m.RecordLastSeenFunc != nil {
		return m.RecordLastSeenFunc(ctx, actor, timestamp)
	}
	return "", nil
}

func (m *MockTaskService) GetLastSeen(ctx context.Context, actor *models.User) (*string, error) {
	if m.GetLastSeenFunc != nil {
		return m.GetLastSeenFunc(ctx, actor)
	}
	return nil, nil
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginURLFunc        func() (*services.LoginURL, error)
	DiscordCallbackFunc func(ctx context.Context, code, state, ipAddress string) (*models.Session, error)
	SignOutFunc         func(ctx context.Context, sessionToken string) error
}

func (m *MockAuthService) LoginURL() (*services.LoginURL, error) {
	if m.LoginURLFunc != nil {
		return m.LoginURLFunc()
	}
	return &services.LoginURL{URL: "https://discord.example/oauth2/authorize", State: "state"}, nil
}

func (m *MockAuthService) DiscordCallback(ctx context.Context, code, state, ipAddress string) (*models.Session, error) {
	if m.DiscordCallbackFunc != nil {
		return m.DiscordCallbackFunc(ctx, code, state, ipAddress)
	}
	return nil, models.ErrNotAllowListed
}

func (m *MockAuthService) SignOut(ctx context.Context, sessionToken string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, sessionToken)
	}
	return nil
}

// MockDeviceService implements DeviceServiceInterface for testing
type MockDeviceService struct {
	RegisterFunc          func(ctx context.Context, session *models.Session, expoToken string, deviceName *string) (*services.Registration, error)
	ListFunc              func(ctx context.Context, user *models.User) ([]*models.PushToken, error)
	UpdateFunc            func(ctx context.Context, user *models.User, id string, deviceName *string, isValid *bool) error
	DeleteFunc            func(ctx context.Context, user *models.User, id string) error
	ListBySessionFunc     func(ctx context.Context, user *models.User, sessionToken string) ([]*models.PushToken, error)
	InvalidateSessionFunc func(ctx context.Context, user *models.User, sessionToken string) (int64, error)
}

func (m *MockDeviceService) Register(ctx context.Context, session *models.Session, expoToken string, deviceName *string) (*services.Registration, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, session, expoToken, deviceName)
	}
	return &services.Registration{TokenID: "device-1", Created: true}, nil
}

func (m *MockDeviceService) List(ctx context.Context, user *models.User) ([]*models.PushToken, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, user)
	}
	return []*models.PushToken{}, nil
}

func (m *MockDeviceService) Update(ctx context.Context, user *models.User, id string, deviceName *string, isValid *bool) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, user, id, deviceName, isValid)
	}
	return nil
}

func (m *MockDeviceService) Delete(ctx context.Context, user *models.User, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, user, id)
	}
	return nil
}

func (m *MockDeviceService) ListBySession(ctx context.Context, user *models.User, sessionToken string) ([]*models.PushToken, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(ctx, user, sessionToken)
	}
	return []*models.PushToken{}, nil
}

func (m *MockDeviceService) InvalidateSession(ctx context.Context, user *models.User, sessionToken string) (int64, error) {
	if m.InvalidateSessionFunc != nil {
		return m.InvalidateSessionFunc(ctx, user, sessionToken)
	}
	return 0, nil
}
