package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("CARNET_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Import.MatchesAny())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CARNET_CONFIG_DIR", dir)

	data := []byte(`database:
  path: /tmp/book.db
  driver: sqlite
log:
  level: debug
  json: true
import:
  blank_given_name_matches_any: false
user: claire
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/book.db", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.False(t, cfg.Import.MatchesAny())
	assert.Equal(t, "claire", cfg.User)

	path, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/book.db", path)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CARNET_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database: ["), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("CARNET_CONFIG_DIR", filepath.Join(t.TempDir(), "nested"))

	cfg := Default()
	cfg.User = "paul"
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "paul", loaded.User)
}

func TestDatabasePathDefaultsToDataDir(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("CARNET_DATA_DIR", dataDir)

	path, err := Default().DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "carnet.db"), path)
}
