package config

// Keys understood by the parser.
const (
	KeyOrigPathPrefix = "orig-path-prefix"
	KeyNewPathPrefix  = "new-path-prefix"
	KeyVerify         = "verify"
	KeyGcov           = "gcov"
	KeyDebugRoot      = "debug-root"
	KeyMaxGcnoSize    = "max-gcno-size"
	KeyPathCacheSize  = "path-cache-size"
)

// Store is the key/value view of the configuration consumed by parsers.
// Unknown keys read as the zero value.
type Store interface {
	KeyAsString(key string) string
	KeyAsInt(key string) int
}

// KeyAsString returns a string option.
func (c *Config) KeyAsString(key string) string {
	switch key {
	case KeyOrigPathPrefix:
		return c.Paths.OrigPrefix
	case KeyNewPathPrefix:
		return c.Paths.NewPrefix
	case KeyDebugRoot:
		return c.Paths.DebugRoot
	default:
		return ""
	}
}

// KeyAsInt returns an integer option. Boolean options read as 0 or 1.
func (c *Config) KeyAsInt(key string) int {
	switch key {
	case KeyVerify:
		return boolToInt(c.Parser.Verify)
	case KeyGcov:
		return boolToInt(c.Parser.Gcov)
	case KeyMaxGcnoSize:
		return int(c.Parser.MaxGcnoSize)
	case KeyPathCacheSize:
		return c.Parser.PathCacheSize
	default:
		return 0
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
