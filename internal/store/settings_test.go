package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	v, err := s.Setting("theme", "light")
	require.NoError(t, err)
	assert.Equal(t, "light", v)

	require.NoError(t, s.SetSetting("theme", "dark"))
	require.NoError(t, s.SetSetting("theme", "solarized"))

	v, err = s.Setting("theme", "light")
	require.NoError(t, err)
	assert.Equal(t, "solarized", v)
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM settings"))
}

func TestBackup(t *testing.T) {
	s := newTestStore(t)
	id := mustContact(t, s, "Martin", "Paul")

	path := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, s.Backup(path))

	copied, err := New(path)
	require.NoError(t, err)
	defer copied.Close()

	c, err := copied.GetContact(id)
	require.NoError(t, err)
	assert.Equal(t, "Martin", c.Surname)

	assert.Error(t, s.Backup(path), "an existing file is never overwritten")
}

func TestBackupRefusesExistingFile(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "taken.db")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o600))

	require.Error(t, s.Backup(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}
