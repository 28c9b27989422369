package config

const (
	// DefaultDebugRoot is the global debug directory searched for companion files.
	DefaultDebugRoot = "/usr/lib/debug"

	// DefaultMaxGcnoSize bounds gcno reads (64MB).
	DefaultMaxGcnoSize = 64 << 20

	// DefaultPathCacheSize is the number of canonicalized source paths kept.
	DefaultPathCacheSize = 4096

	// DefaultDir is the per-user configuration directory.
	DefaultDir = ".covmap"

	// ConfigFile is the configuration file name inside DefaultDir.
	ConfigFile = "config.yaml"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Paths: PathsConfig{
			DebugRoot: DefaultDebugRoot,
		},
		Parser: ParserConfig{
			MaxGcnoSize:   DefaultMaxGcnoSize,
			PathCacheSize: DefaultPathCacheSize,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
