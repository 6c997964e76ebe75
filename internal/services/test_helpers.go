package services

import (
	"context"
	"time"

	"github.com/BradenHooton/littlespace/internal/events"
	"github.com/BradenHooton/littlespace/internal/models"
)

// MockTaskRepository implements TaskRepository for testing
type MockTaskRepository struct {
	CreateFunc       func(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByIDFunc      func(ctx context.Context, id string) (*models.Task, error)
	UpdateFunc       func(ctx context.Context, id string, changes *models.TaskChanges, updatedAt time.Time) (*models.Task, error)
	UpdateStatusFunc func(ctx context.Context, id string, status models.TaskStatus, updatedAt time.Time) (*models.Task, error)
	DeleteFunc       func(ctx context.Context, id string) (*models.Task, error)
	ListRelevantFunc func(ctx context.Context, dayStart, dayEnd time.Time) ([]*models.Task, error)

	// Calls counts every repository call
	Calls int
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	m.Calls++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, task)
	}
	return task, nil
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	m.Calls++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockTaskRepository) Update(ctx context.Context, id string, changes *models.TaskChanges, updatedAt time.Time) (*models.Task, error) {
	m.Calls++
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, changes, updatedAt)
	}
	return nil, models.ErrNotFound
}

func (m *MockTaskRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus, updatedAt time.Time) (*models.Task, error) {
	m.Calls++
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, updatedAt)
	}
	return nil, models.ErrNotFound
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) (*models.Task, error) {
	m.Calls++
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockTaskRepository) ListRelevant(ctx context.Context, dayStart, dayEnd time.Time) ([]*models.Task, error) {
	m.Calls++
	if m.ListRelevantFunc != nil {
		return m.ListRelevantFunc(ctx, dayStart, dayEnd)
	}
	return []*models.Task{}, nil
}

// MockMetadataRepository implements MetadataRepository for testing
type MockMetadataRepository struct {
	SetMetadataStringFunc func(ctx context.Context, id, key, value string) (models.Metadata, error)
}

func (m *MockMetadataRepository) SetMetadataString(ctx context.Context, id, key, value string) (models.Metadata, error) {
	if m.SetMetadataStringFunc != nil {
		return m.SetMetadataStringFunc(ctx, id, key, value)
	}
	return models.Metadata{key: value}, nil
}

// MockPublisher records published events
type MockPublisher struct {
	Events []events.TaskEvent
	Err    error
}

func (m *MockPublisher) Publish(ctx context.Context, event events.TaskEvent) error {
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

// MockTaskMetrics records metric calls
type MockTaskMetrics struct {
	Mutations       []string
	Transitions     [][2]string
	PublishFailures int
}

func (m *MockTaskMetrics) RecordTaskMutation(operation string) {
	m.Mutations = append(m.Mutations, operation)
}

func (m *MockTaskMetrics) RecordStatusTransition(from, to string) {
	m.Transitions = append(m.Transitions, [2]string{from, to})
}

func (m *MockTaskMetrics) RecordEventPublishFailure() {
	m.PublishFailures++
}

// MockIdentityProvider implements IdentityProvider for testing
type MockIdentityProvider struct {
	AuthCodeURLFunc func(state string) string
	ExchangeFunc    func(ctx context.Context, code string) (*models.ExternalIdentity, *models.Account, error)
}

func (m *MockIdentityProvider) AuthCodeURL(state string) string {
	if m.AuthCodeURLFunc != nil {
		return m.AuthCodeURLFunc(state)
	}
	return "https://discord.example/oauth2/authorize?state=" + state
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, code string) (*models.ExternalIdentity, *models.Account, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return nil, nil, models.ErrIdentityProvider
}

// MockStateSigner implements StateSigner for testing
type MockStateSigner struct {
	IssueFunc  func(provider string) (string, error)
	VerifyFunc func(state, provider string) error
}

func (m *MockStateSigner) Issue(provider string) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(provider)
	}
	return "state-" + provider, nil
}

func (m *MockStateSigner) Verify(state, provider string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(state, provider)
	}
	return nil
}

// MockSessionManager implements SessionManager and SessionLookup for testing
type MockSessionManager struct {
	CreateFunc     func(ctx context.Context, userID string) (*models.Session, error)
	InvalidateFunc func(ctx context.Context, token string) error
	ResolveFunc    func(ctx context.Context, token string) (*models.Session, error)
}

func (m *MockSessionManager) Create(ctx context.Context, userID string) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID)
	}
	return &models.Session{Token: "session-token", UserID: userID, Expires: time.Now().Add(7 * 24 * time.Hour)}, nil
}

func (m *MockSessionManager) Invalidate(ctx context.Context, token string) error {
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx, token)
	}
	return nil
}

func (m *MockSessionManager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByProviderFunc  func(ctx context.Context, provider, providerAccountID string) (*models.Account, error)
	UpdateTokensFunc   func(ctx context.Context, account *models.Account) error
	CreateWithUserFunc func(ctx context.Context, user *models.User, account *models.Account) (*models.User, error)
}

func (m *MockAccountRepository) GetByProvider(ctx context.Context, provider, providerAccountID string) (*models.Account, error) {
	if m.GetByProviderFunc != nil {
		return m.GetByProviderFunc(ctx, provider, providerAccountID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) UpdateTokens(ctx context.Context, account *models.Account) error {
	if m.UpdateTokensFunc != nil {
		return m.UpdateTokensFunc(ctx, account)
	}
	return nil
}

func (m *MockAccountRepository) CreateWithUser(ctx context.Context, user *models.User, account *models.Account) (*models.User, error) {
	if m.CreateWithUserFunc != nil {
		return m.CreateWithUserFunc(ctx, user, account)
	}
	user.ID = "new-user"
	return user, nil
}

// MockProfileRepository implements ProfileRepository for testing
type MockProfileRepository struct {
	UpdateProfileFunc func(ctx context.Context, id, name, image string, seenAt time.Time) (*models.User, error)
}

func (m *MockProfileRepository) UpdateProfile(ctx context.Context, id, name, image string, seenAt time.Time) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, name, image, seenAt)
	}
	return &models.User{ID: id, Name: name, Image: image, Role: models.RoleRestricted, LastSeen: seenAt}, nil
}

// MockPushTokenRepository implements PushTokenRepository for testing
type MockPushTokenRepository struct {
	UpsertFunc              func(ctx context.Context, token *models.PushToken, now time.Time) (string, bool, error)
	ListByUserFunc          func(ctx context.Context, userID string) ([]*models.PushToken, error)
	ListBySessionFunc       func(ctx context.Context, sessionToken string) ([]*models.PushToken, error)
	UpdateOwnedFunc         func(ctx context.Context, id, userID string, deviceName *string, isValid *bool, now time.Time) error
	DeleteOwnedFunc         func(ctx context.Context, id, userID string) error
	InvalidateBySessionFunc func(ctx context.Context, sessionToken string) (int64, error)
}

func (m *MockPushTokenRepository) Upsert(ctx context.Context, token *models.PushToken, now time.Time) (string, bool, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, token, now)
	}
	return "token-id", true, nil
}

func (m *MockPushTokenRepository) ListByUser(ctx context.Context, userID string) ([]*models.PushToken, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.PushToken{}, nil
}

func (m *MockPushTokenRepository) ListBySession(ctx context.Context, sessionToken string) ([]*models.PushToken, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(ctx, sessionToken)
	}
	return []*models.PushToken{}, nil
}

func (m *MockPushTokenRepository) UpdateOwned(ctx context.Context, id, userID string, deviceName *string, isValid *bool, now time.Time) error {
	if m.UpdateOwnedFunc != nil {
		return m.UpdateOwnedFunc(ctx, id, userID, deviceName, isValid, now)
	}
	return nil
}

func (m *MockPushTokenRepository) DeleteOwned(ctx context.Context, id, userID string) error {
	if m.DeleteOwnedFunc != nil {
		return m.DeleteOwnedFunc(ctx, id, userID)
	}
	return nil
}

func (m *MockPushTokenRepository) InvalidateBySession(ctx context.Context, sessionToken string) (int64, error) {
	if m.InvalidateBySessionFunc != nil {
		return m.InvalidateBySessionFunc(ctx, sessionToken)
	}
	return 0, nil
}
