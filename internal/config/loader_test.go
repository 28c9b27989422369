package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadMissingFileReturnsDefaults(t *testing.T) {
	loader := NewLoaderWithDir(t.TempDir())

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `version: 1
paths:
  orig_prefix: /build/src
  new_prefix: /home/user/src
  debug_root: /opt/debug
parser:
  verify: true
  gcov: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0o600))

	cfg, err := NewLoaderWithDir(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "/build/src", cfg.Paths.OrigPrefix)
	assert.Equal(t, "/home/user/src", cfg.Paths.NewPrefix)
	assert.Equal(t, "/opt/debug", cfg.Paths.DebugRoot)
	assert.True(t, cfg.Parser.Verify)
	assert.True(t, cfg.Parser.Gcov)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, int64(DefaultMaxGcnoSize), cfg.Parser.MaxGcnoSize)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("parser:\n  verify: false\n"), 0o600))

	t.Setenv("COVMAP_VERIFY", "true")
	t.Setenv("COVMAP_DEBUG_ROOT", "/srv/debug")

	cfg, err := NewLoaderWithDir(dir).Load()
	require.NoError(t, err)
	assert.True(t, cfg.Parser.Verify)
	assert.Equal(t, "/srv/debug", cfg.Paths.DebugRoot)
}

func TestLoader_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("paths: [unterminated"), 0o600))

	_, err := NewLoaderWithDir(dir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoader_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("paths:\n  orig_prefix: /build\n"), 0o600))

	_, err := NewLoaderWithDir(dir).Load()
	require.Error(t, err)
}

func TestNewLoader_ConfigEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COVMAP_CONFIG", dir)

	loader := NewLoader()
	assert.Equal(t, filepath.Join(dir, ConfigFile), loader.ConfigPath())
}
