package lines

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathResolver_Remap(t *testing.T) {
	r, err := NewPathResolver("/build/src", "/home/user/src", 0)
	require.NoError(t, err)

	assert.Equal(t, "/home/user/src/foo.c", r.Resolve("", "/build/src/foo.c"))
	assert.Equal(t, "/home/user/src/lib/bar.c", r.Resolve("/build/src", "lib/bar.c"))
	// Paths outside the original root are left as recorded.
	assert.Equal(t, "/usr/include/stdio.h", r.Resolve("", "/usr/include/stdio.h"))
}

func TestPathResolver_RemapCanonicalizes(t *testing.T) {
	root := t.TempDir()
	realRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "foo.c"), nil, 0o600))
	require.NoError(t, os.Symlink(filepath.Join(root, "src"), filepath.Join(root, "link")))

	r, err := NewPathResolver("/build", filepath.Join(root, "link"), 0)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(realRoot, "src", "foo.c"), r.Resolve("/build", "sub/../foo.c"))
}

func TestPathResolver_NoRemap(t *testing.T) {
	r, err := NewPathResolver("", "", 0)
	require.NoError(t, err)

	assert.Equal(t, "/build/src/foo.c", r.Resolve("/elsewhere", "/build/src/foo.c"))
	assert.Equal(t, "/build/src/foo.c", r.Resolve("/build/src", "foo.c"))
	assert.Equal(t, "relative.c", r.Resolve("", "relative.c"))
}

func TestPathResolver_HalfConfiguredRemapIsIgnored(t *testing.T) {
	r, err := NewPathResolver("/build/src", "", 0)
	require.NoError(t, err)

	assert.Equal(t, "/build/src/foo.c", r.Resolve("", "/build/src/foo.c"))
}

func TestPathResolver_CachesCanonicalPaths(t *testing.T) {
	dir := t.TempDir()
	realDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	path := filepath.Join(dir, "a.c")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	r, err := NewPathResolver("", "", 1)
	require.NoError(t, err)

	want := filepath.Join(realDir, "a.c")
	assert.Equal(t, want, r.Resolve("", path))

	// The cached answer survives the file going away.
	require.NoError(t, os.Remove(path))
	assert.Equal(t, want, r.Resolve("", path))

	r.Purge()
	assert.Equal(t, path, r.Resolve("", path))
}
