package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accountportal/internal/adapter/memory"
	"accountportal/internal/domain"
	"accountportal/internal/logger"
)

type mockBackend struct {
	mock.Mock
}

var _ domain.Backend = (*mockBackend)(nil)

func (m *mockBackend) Login(ctx context.Context, username, password string) (domain.AccessToken, error) {
	args := m.Called(ctx, username, password)
	tok, _ := args.Get(0).(domain.AccessToken)
	return tok, args.Error(1)
}

func (m *mockBackend) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockBackend) Register(ctx context.Context, r domain.Registration) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockBackend) VerifyEmail(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *mockBackend) ResendVerification(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockBackend) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockBackend) ResetPassword(ctx context.Context, r domain.PasswordReset) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockBackend) UpdateProfile(ctx context.Context, token string, p domain.ProfileUpdate) (*domain.User, error) {
	args := m.Called(ctx, token, p)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockBackend) ChangePassword(ctx context.Context, token, current, next string) error {
	return m.Called(ctx, token, current, next).Error(0)
}

func (m *mockBackend) UploadAvatar(ctx context.Context, token string, a domain.Avatar) error {
	return m.Called(ctx, token, a).Error(0)
}

func (m *mockBackend) DeleteAvatar(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockBackend) ListUsers(ctx context.Context, token string) ([]domain.UserListItem, error) {
	args := m.Called(ctx, token)
	items, _ := args.Get(0).([]domain.UserListItem)
	return items, args.Error(1)
}

// mockRepo wraps the in-memory repository and can inject failures.
type mockRepo struct {
	*memory.SessionRepo

	mu      sync.Mutex
	loadErr error
	saveErr error

	// failSave makes the n-th and later saves fail when non-zero.
	failSave int
	saves    int
}

func newMockRepo() *mockRepo {
	return &mockRepo{SessionRepo: memory.NewSessionRepo(time.Hour)}
}

func (r *mockRepo) Load(ctx context.Context, key string) (*domain.Session, error) {
	r.mu.Lock()
	err := r.loadErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.SessionRepo.Load(ctx, key)
}

func (r *mockRepo) Save(ctx context.Context, key string, s domain.Session) error {
	r.mu.Lock()
	r.saves++
	err := r.saveErr
	if r.failSave > 0 && r.saves >= r.failSave {
		err = errStoreDown
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.SessionRepo.Save(ctx, key, s)
}

var errStoreDown = errors.New("store down")

func alice() domain.User {
	return domain.User{
		ID: 1, Username: "alice", Email: "alice@example.com", Role: domain.RoleUser,
		IsVerified: true, IsActive: true,
	}
}

func newTestStore(t *testing.T, repo domain.SessionRepository) *SessionStore {
	t.Helper()
	store, err := NewSessionStore(repo, 64, logger.Discard())
	require.NoError(t, err)
	return store
}

// loggedIn returns a handle for a client that has completed login.
func loggedIn(t *testing.T, store *SessionStore, clientID string) *SessionHandle {
	t.Helper()
	h := store.Open(clientID)
	require.NoError(t, h.Login(context.Background(), alice(), "T1"))
	return h
}
