package lines

import (
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPathCacheSize is used when NewPathResolver gets a non-positive size.
const DefaultPathCacheSize = 4096

// PathResolver turns line-table file names into the paths reported to
// listeners. Canonicalized paths are cached, since every row of a unit
// usually names one of a handful of files.
type PathResolver struct {
	origPrefix string
	newPrefix  string
	cache      *lru.Cache[string, string]
}

// NewPathResolver creates a resolver. The remap applies only when both
// prefixes are non-empty.
func NewPathResolver(origPrefix, newPrefix string, cacheSize int) (*PathResolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultPathCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	r := &PathResolver{cache: cache}
	if origPrefix != "" && newPrefix != "" {
		r.origPrefix = origPrefix
		r.newPrefix = newPrefix
	}
	return r, nil
}

// Resolve joins a relative name with the unit's compilation directory, applies
// the prefix remap and canonicalizes the result. With a remap configured,
// paths that do not contain the original prefix are returned as recorded.
// When canonicalization fails the uncanonicalized path is returned.
func (r *PathResolver) Resolve(compDir, name string) string {
	path := name
	if !filepath.IsAbs(path) && compDir != "" {
		path = filepath.Join(compDir, path)
	}

	if r.origPrefix != "" {
		if !strings.Contains(path, r.origPrefix) {
			return path
		}
		path = strings.Replace(path, r.origPrefix, r.newPrefix, 1)
	}

	return r.canonical(path)
}

func (r *PathResolver) canonical(path string) string {
	if resolved, ok := r.cache.Get(path); ok {
		return resolved
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	} else if abs, err := filepath.Abs(resolved); err == nil {
		resolved = abs
	}
	r.cache.Add(path, resolved)
	return resolved
}

// Purge drops cached canonical paths.
func (r *PathResolver) Purge() {
	r.cache.Purge()
}
