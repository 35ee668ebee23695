package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/formfill/internal/providers/identity"
)

func newStore(t *testing.T, now time.Time) *Store {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "session.yaml"))
	s.now = func() time.Time { return now }
	return s
}

func TestStoreMissingFile(t *testing.T) {
	s := newStore(t, time.Now())

	sess, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.NoError(t, s.Clear())
}

func TestStoreRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, now)

	in := &identity.Session{
		AccessToken:  "jwt-1",
		TokenType:    "bearer",
		RefreshToken: "refresh-1",
		ExpiresAt:    now.Add(time.Hour).Unix(),
		User:         identity.User{ID: "user-1", Email: "ada@example.com"},
	}
	require.NoError(t, s.Save(in))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := s.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "jwt-1", out.AccessToken)
	assert.Equal(t, "user-1", out.User.ID)
	assert.Equal(t, in.ExpiresAt, out.ExpiresAt)
	assert.True(t, out.IssuedAt.Equal(now))

	require.NoError(t, s.Clear())
	out, err = s.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestStoreExpiredSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, now)

	require.NoError(t, s.Save(&identity.Session{
		AccessToken: "jwt-old",
		ExpiresAt:   now.Add(-time.Minute).Unix(),
	}))

	sess, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess, "expired sessions read as logged out")
}

func TestStoreCorruptFile(t *testing.T) {
	s := newStore(t, time.Now())
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("access_token: [unclosed"), 0o600))

	_, err := s.Current(context.Background())
	assert.Error(t, err)
}

func TestStoreRejectsEmptySession(t *testing.T) {
	s := newStore(t, time.Now())
	assert.Error(t, s.Save(nil))
	assert.Error(t, s.Save(&identity.Session{}))
}

func TestStoreCancelledContext(t *testing.T) {
	s := newStore(t, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Current(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
