package config

import (
	"fmt"
	"path/filepath"
)

// Validate checks the configuration for inconsistent settings.
func (c *Config) Validate() error {
	if (c.Paths.OrigPrefix == "") != (c.Paths.NewPrefix == "") {
		return fmt.Errorf("paths.orig_prefix and paths.new_prefix must be set together")
	}

	if c.Paths.DebugRoot != "" && !filepath.IsAbs(c.Paths.DebugRoot) {
		return fmt.Errorf("paths.debug_root %q must be an absolute path", c.Paths.DebugRoot)
	}

	if c.Parser.MaxGcnoSize < 0 {
		return fmt.Errorf("parser.max_gcno_size cannot be negative")
	}

	if c.Parser.PathCacheSize < 0 {
		return fmt.Errorf("parser.path_cache_size cannot be negative")
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of trace, debug, info, warn, error", c.Logging.Level)
	}

	return nil
}
