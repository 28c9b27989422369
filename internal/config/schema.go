// Package config provides configuration loading and the key/value store the
// parser reads its options from.
package config

// SchemaVersion is the current config file schema version.
const SchemaVersion = 1

// Config is the covmap configuration.
// Load order: defaults, then the YAML file, then environment variables, then
// CLI flags.
type Config struct {
	Version int           `yaml:"version"`
	Paths   PathsConfig   `yaml:"paths"`
	Parser  ParserConfig  `yaml:"parser"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig controls where source and debug files are looked up.
type PathsConfig struct {
	// OrigPrefix is the source root recorded in the debug info.
	OrigPrefix string `yaml:"orig_prefix,omitempty" env:"COVMAP_ORIG_PATH_PREFIX"`
	// NewPrefix replaces OrigPrefix in emitted source paths.
	NewPrefix string `yaml:"new_prefix,omitempty" env:"COVMAP_NEW_PATH_PREFIX"`
	// DebugRoot is the global debug directory for build-id and debug-link lookups.
	DebugRoot string `yaml:"debug_root,omitempty" env:"COVMAP_DEBUG_ROOT"`
}

// ParserConfig toggles parser behavior.
type ParserConfig struct {
	// Verify rejects line-table addresses that are not on an instruction boundary.
	Verify bool `yaml:"verify" env:"COVMAP_VERIFY"`
	// Gcov scans for embedded gcda names and prefers gcno graphs over DWARF.
	Gcov bool `yaml:"gcov" env:"COVMAP_GCOV"`
	// MaxGcnoSize bounds the size of a gcno file read into memory.
	MaxGcnoSize int64 `yaml:"max_gcno_size,omitempty" env:"COVMAP_MAX_GCNO_SIZE"`
	// PathCacheSize bounds the canonical source path cache.
	PathCacheSize int `yaml:"path_cache_size,omitempty" env:"COVMAP_PATH_CACHE_SIZE"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" env:"COVMAP_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"COVMAP_LOG_PRETTY"`
}
