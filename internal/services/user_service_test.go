package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/ender-auth/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func newTestConn(t *testing.T) *database.Conn {
	t.Helper()
	conn, err := database.Open(context.Background(), database.Options{
		Path:           filepath.Join(t.TempDir(), "auth.db"),
		ReconnectDelay: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newTestUserService(t *testing.T) (*UserService, *database.Conn) {
	t.Helper()
	conn := newTestConn(t)
	s := NewUserService(conn)
	s.cost = bcrypt.MinCost
	return s, conn
}

func TestUserService_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestUserService(t)

	created, err := s.Create(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.PasswordHash)
	assert.Equal(t, "Alice", created.Name)

	byID, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)
	assert.Empty(t, byID.PasswordHash)
	assert.False(t, byID.CreatedAt.IsZero())

	noSecret, err := s.FindByEmail(ctx, "a@x.com", false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, noSecret.ID)
	assert.Empty(t, noSecret.PasswordHash)

	withSecret, err := s.FindByEmail(ctx, "a@x.com", true)
	require.NoError(t, err)
	assert.NotEmpty(t, withSecret.PasswordHash)
	assert.NotEqual(t, "secret123", withSecret.PasswordHash)
}

func TestUserService_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestUserService(t)

	first, err := s.Create(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)

	_, err = s.Create(ctx, "Mallory", "a@x.com", "other")
	require.ErrorIs(t, err, ErrEmailTaken)

	got, err := s.FindByEmail(ctx, "a@x.com", true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "Alice", got.Name)
	assert.True(t, s.MatchPassword(got, "secret123"))
}

func TestUserService_EmailIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestUserService(t)

	_, err := s.Create(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)

	_, err = s.FindByEmail(ctx, "A@X.com", false)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestUserService(t)

	_, err := s.FindByID(ctx, "nope")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = s.FindByEmail(ctx, "nobody@x.com", true)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_MatchPassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestUserService(t)

	_, err := s.Create(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)
	user, err := s.FindByEmail(ctx, "a@x.com", true)
	require.NoError(t, err)

	assert.True(t, s.MatchPassword(user, "secret123"))
	assert.False(t, s.MatchPassword(user, "wrong"))

	user.PasswordHash = ""
	assert.False(t, s.MatchPassword(user, "secret123"))
}

func TestUserService_Unavailable(t *testing.T) {
	ctx := context.Background()
	s, conn := newTestUserService(t)
	require.NoError(t, conn.Close())

	_, err := s.FindByID(ctx, "u1")
	require.ErrorIs(t, err, database.ErrUnavailable)

	_, err = s.Create(ctx, "Alice", "a@x.com", "secret123")
	require.ErrorIs(t, err, database.ErrUnavailable)
}

func TestUserService_CorruptStoreMarksDisconnected(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "auth.db")
	conn, err := database.Open(ctx, database.Options{Path: path, ReconnectDelay: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	s := NewUserService(conn)
	s.cost = bcrypt.MinCost

	_, err = s.Create(ctx, "Alice", "a@x.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("junkjunk"), 1024), 0o644))

	_, err = s.FindByEmail(ctx, "a@x.com", true)
	require.ErrorIs(t, err, database.ErrUnavailable)
	assert.Equal(t, database.Disconnected, conn.State())
}
