package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		check  func(t *testing.T, cfg *Config)
		errMsg string
	}{
		{
			name: "path remap",
			env: map[string]string{
				"COVMAP_ORIG_PATH_PREFIX": "/build/src",
				"COVMAP_NEW_PATH_PREFIX":  "/home/user/src",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/build/src", cfg.Paths.OrigPrefix)
				assert.Equal(t, "/home/user/src", cfg.Paths.NewPrefix)
			},
		},
		{
			name: "booleans",
			env: map[string]string{
				"COVMAP_VERIFY": "1",
				"COVMAP_GCOV":   "true",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Parser.Verify)
				assert.True(t, cfg.Parser.Gcov)
			},
		},
		{
			name: "integers accept hex",
			env: map[string]string{
				"COVMAP_MAX_GCNO_SIZE":   "0x1000",
				"COVMAP_PATH_CACHE_SIZE": "16",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, int64(0x1000), cfg.Parser.MaxGcnoSize)
				assert.Equal(t, 16, cfg.Parser.PathCacheSize)
			},
		},
		{
			name:   "invalid boolean",
			env:    map[string]string{"COVMAP_VERIFY": "sometimes"},
			errMsg: "COVMAP_VERIFY",
		},
		{
			name:   "invalid integer",
			env:    map[string]string{"COVMAP_PATH_CACHE_SIZE": "lots"},
			errMsg: "COVMAP_PATH_CACHE_SIZE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			err := LoadFromEnv(cfg)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromEnv_EmptyValueIgnored(t *testing.T) {
	t.Setenv("COVMAP_DEBUG_ROOT", "")

	cfg := DefaultConfig()
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, DefaultDebugRoot, cfg.Paths.DebugRoot)
}

func TestLoadFromEnv_NilPointer(t *testing.T) {
	var cfg *Config
	assert.NoError(t, LoadFromEnv(cfg))
}

func TestLoadFromEnv_ReportsEveryBadValue(t *testing.T) {
	t.Setenv("COVMAP_VERIFY", "sometimes")
	t.Setenv("COVMAP_MAX_GCNO_SIZE", "huge")

	err := LoadFromEnv(DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COVMAP_VERIFY")
	assert.Contains(t, err.Error(), "COVMAP_MAX_GCNO_SIZE")
}

func TestEnvVars(t *testing.T) {
	assert.Equal(t, []string{
		"COVMAP_ORIG_PATH_PREFIX",
		"COVMAP_NEW_PATH_PREFIX",
		"COVMAP_DEBUG_ROOT",
		"COVMAP_VERIFY",
		"COVMAP_GCOV",
		"COVMAP_MAX_GCNO_SIZE",
		"COVMAP_PATH_CACHE_SIZE",
		"COVMAP_LOG_LEVEL",
		"COVMAP_LOG_PRETTY",
	}, EnvVars())
}
