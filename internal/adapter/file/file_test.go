package file

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountportal/internal/domain"
)

func newRepo(t *testing.T, ttl time.Duration) (*SessionRepo, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	repo, err := NewSessionRepo(fsys, "/var/lib/portal", ttl)
	require.NoError(t, err)
	return repo, fsys
}

func TestSessionRepo_SaveLoadDelete(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t, time.Hour)
	ctx := context.Background()

	got, err := repo.Load(ctx, "auth-storage:client-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	sess := domain.Session{
		User:            &domain.User{ID: 3, Username: "alice", Email: "alice@example.com", Role: domain.RoleAdmin},
		Token:           "tok-1",
		IsAuthenticated: true,
	}
	require.NoError(t, repo.Save(ctx, "auth-storage:client-1", sess))

	got, err = repo.Load(ctx, "auth-storage:client-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-1", got.Token)
	assert.True(t, got.IsAuthenticated)
	assert.Equal(t, domain.RoleAdmin, got.User.Role)

	require.NoError(t, repo.Delete(ctx, "auth-storage:client-1"))
	got, err = repo.Load(ctx, "auth-storage:client-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, repo.Delete(ctx, "auth-storage:client-1"))
}

func TestSessionRepo_KeysAreFileSafe(t *testing.T) {
	t.Parallel()
	repo, fsys := newRepo(t, 0)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "auth-storage:../../etc/passwd", domain.Session{Token: "x"}))

	entries, err := afero.ReadDir(fsys, "/var/lib/portal")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")

	exists, err := afero.Exists(fsys, "/etc/passwd")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSessionRepo_Expiry(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t, time.Minute)
	ctx := context.Background()

	now := time.Now()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(ctx, "old", domain.Session{Token: "a"}))
	now = now.Add(5 * time.Minute)
	require.NoError(t, repo.Save(ctx, "fresh", domain.Session{Token: "b"}))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.Load(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Token)

	got, err = repo.Load(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, got)
}
