package session

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hndesk/hndesk/internal/domain"
)

func TestFileCredentialStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileCredentialStore(path)

	_, err := s.Load()
	assert.ErrorIs(t, err, domain.ErrNoCredentials)

	saved := domain.Credentials{Token: "tok&en", Username: "tester"}
	require.NoError(t, s.Save(saved))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestFileCredentialStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileCredentialStore(path)

	// Deleting what was never saved is fine.
	require.NoError(t, s.Delete())

	require.NoError(t, s.Save(domain.Credentials{Token: "t", Username: "u"}))
	require.NoError(t, s.Delete())

	_, err := s.Load()
	assert.ErrorIs(t, err, domain.ErrNoCredentials)
}
