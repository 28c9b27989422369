package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration files.
type Loader struct {
	baseDir string
}

// NewLoader creates a new config loader.
// The base directory is resolved in this order:
//  1. COVMAP_CONFIG environment variable.
//  2. User home directory (~/.covmap).
//  3. /tmp/covmap-fallback (containers without a home directory).
func NewLoader() *Loader {
	if baseDir := os.Getenv("COVMAP_CONFIG"); baseDir != "" {
		return &Loader{baseDir: baseDir}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return &Loader{baseDir: filepath.Join(homeDir, DefaultDir)}
	}

	// Config files won't exist here, so Load returns defaults + env overrides.
	return &Loader{baseDir: "/tmp/covmap-fallback"}
}

// NewLoaderWithDir creates a loader rooted at dir.
func NewLoaderWithDir(dir string) *Loader {
	return &Loader{baseDir: dir}
}

// ConfigPath returns the path to the config file.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.baseDir, ConfigFile)
}

// Load loads the configuration.
// Returns the default config if the file doesn't exist, then applies
// environment variable overrides and validates the result.
func (l *Loader) Load() (*Config, error) {
	return LoadFile(l.ConfigPath())
}

// LoadFile loads the configuration from path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // G304: Path is from the trusted config directory or an explicit flag.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
