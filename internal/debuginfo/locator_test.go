package debuginfo

import (
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/covmap/internal/elfscan"
	"github.com/coral-mesh/covmap/internal/errors"
	"github.com/coral-mesh/covmap/internal/testutil"
)

func TestLocator_Candidates(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	l := NewLocator("/debug", testutil.NewTestLogger(t))

	tests := []struct {
		name string
		img  *elfscan.Image
		want []string
	}{
		{
			name: "build-id and debug link",
			img: &elfscan.Image{
				Filename:  filepath.Join(dir, "ls"),
				BuildID:   "abcdef1234",
				DebugLink: "ls.debug",
			},
			want: []string{
				"/debug/.build-id/ab/cdef1234.debug",
				filepath.Join(dir, "ls.debug"),
				filepath.Join(dir, ".debug", "ls.debug"),
				filepath.Join("/debug", resolved, "ls.debug"),
			},
		},
		{
			name: "build-id only",
			img:  &elfscan.Image{Filename: filepath.Join(dir, "ls"), BuildID: "abcdef1234"},
			want: []string{"/debug/.build-id/ab/cdef1234.debug"},
		},
		{
			name: "debug link only",
			img:  &elfscan.Image{Filename: filepath.Join(dir, "ls"), DebugLink: "ls.debug"},
			want: []string{
				filepath.Join(dir, "ls.debug"),
				filepath.Join(dir, ".debug", "ls.debug"),
				filepath.Join("/debug", resolved, "ls.debug"),
			},
		},
		{
			name: "too short build-id",
			img:  &elfscan.Image{Filename: filepath.Join(dir, "ls"), BuildID: "ab"},
			want: nil,
		},
		{
			name: "nothing",
			img:  &elfscan.Image{Filename: filepath.Join(dir, "ls")},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Candidates(tt.img))
		})
	}
}

func TestLocator_DefaultRoot(t *testing.T) {
	l := &Locator{}
	got := l.Candidates(&elfscan.Image{Filename: "/bin/ls", BuildID: "0011"})
	assert.Equal(t, []string{"/usr/lib/debug/.build-id/00/11.debug"}, got)
}

func TestLocator_LocateTriesCandidatesInOrder(t *testing.T) {
	dir := t.TempDir()
	img := &elfscan.Image{
		Filename:  filepath.Join(dir, "prog"),
		BuildID:   "abcdef1234",
		DebugLink: "prog.debug",
	}

	var tried []string
	l := &Locator{
		Root:   filepath.Join(dir, "root"),
		Logger: testutil.NewTestLogger(t),
		Open: func(path string) (*elf.File, error) {
			tried = append(tried, path)
			return nil, os.ErrNotExist
		},
	}

	_, err := l.Locate(img, true)
	require.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, errors.ErrDebugInfoAbsent)
	assert.Equal(t, l.Candidates(img), tried)
	assert.Len(t, tried, 4)
}

func TestLocator_LocateSkipsFilesWithoutDWARF(t *testing.T) {
	self := testutil.SelfBinary(t)
	dir := t.TempDir()

	// dir/prog.debug is a valid ELF without DWARF, dir/.debug/prog.debug has it.
	testutil.NewELF(elf.ELFCLASS64).AddText(0x1000, []byte{0xc3}).WriteELF(t, dir, "prog.debug")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".debug"), 0o755))
	data, err := os.ReadFile(self)
	require.NoError(t, err)
	want := filepath.Join(dir, ".debug", "prog.debug")
	require.NoError(t, os.WriteFile(want, data, 0o600))

	l := NewLocator(filepath.Join(dir, "root"), testutil.NewTestLogger(t))
	dbg, err := l.Locate(&elfscan.Image{Filename: filepath.Join(dir, "prog"), DebugLink: "prog.debug"}, false)
	require.NoError(t, err)
	defer func() { _ = dbg.Close() }()

	assert.Equal(t, want, dbg.Path)
	assert.NotNil(t, dbg.DWARF)
}

func TestLocator_LocateByBuildID(t *testing.T) {
	self := testutil.SelfBinary(t)
	root := t.TempDir()

	buildDir := filepath.Join(root, ".build-id", "12")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	data, err := os.ReadFile(self)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "3456.debug"), data, 0o600))

	l := NewLocator(root, testutil.NewTestLogger(t))
	dbg, err := l.Locate(&elfscan.Image{Filename: "/nonexistent/prog", BuildID: "123456", DebugLink: "prog.debug"}, true)
	require.NoError(t, err)
	defer func() { _ = dbg.Close() }()

	assert.Equal(t, filepath.Join(buildDir, "3456.debug"), dbg.Path)
}
