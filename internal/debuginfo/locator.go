// Package debuginfo finds the separate debug file of a stripped image.
package debuginfo

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/covmap/internal/elfscan"
	"github.com/coral-mesh/covmap/internal/errors"
)

// DefaultRoot is the global debug directory.
const DefaultRoot = "/usr/lib/debug"

// ErrNotFound is returned when no candidate carries usable debug info.
var ErrNotFound = fmt.Errorf("%w: no separate debug file found", errors.ErrDebugInfoAbsent)

// Debug is an opened companion file.
type Debug struct {
	Path  string
	File  *elf.File
	DWARF *dwarf.Data
}

// Close closes the companion file.
func (d *Debug) Close() error {
	return d.File.Close()
}

// Locator searches the locations gdb documents for separate debug files.
type Locator struct {
	// Root is the global debug directory. Empty means DefaultRoot.
	Root string
	// Open opens a candidate. Nil means elf.Open.
	Open   func(path string) (*elf.File, error)
	Logger zerolog.Logger
}

// NewLocator creates a locator rooted at root.
func NewLocator(root string, logger zerolog.Logger) *Locator {
	return &Locator{
		Root:   root,
		Logger: logger.With().Str("component", "debuginfo").Logger(),
	}
}

func (l *Locator) root() string {
	if l.Root == "" {
		return DefaultRoot
	}
	return l.Root
}

// Candidates returns the debug file paths for img in search order. For
// /usr/bin/ls with build-id abcdef1234 and debug link ls.debug they are:
//
//	/usr/lib/debug/.build-id/ab/cdef1234.debug
//	/usr/bin/ls.debug
//	/usr/bin/.debug/ls.debug
//	/usr/lib/debug/usr/bin/ls.debug
func (l *Locator) Candidates(img *elfscan.Image) []string {
	var out []string

	if len(img.BuildID) > 2 {
		out = append(out, filepath.Join(l.root(), ".build-id", img.BuildID[:2], img.BuildID[2:]+".debug"))
	}

	if img.DebugLink == "" {
		return out
	}

	dir := filepath.Dir(img.Filename)
	out = append(out,
		filepath.Join(dir, img.DebugLink),
		filepath.Join(dir, ".debug", img.DebugLink),
	)

	if resolved, err := realDir(dir); err == nil {
		out = append(out, filepath.Join(l.root(), resolved, img.DebugLink))
	} else {
		l.Logger.Debug().Err(err).Str("dir", dir).Msg("Cannot resolve binary directory")
	}

	return out
}

// Locate opens the first candidate whose DWARF decodes. Misses are reported
// at warn level for the main binary only.
func (l *Locator) Locate(img *elfscan.Image, main bool) (*Debug, error) {
	open := l.Open
	if open == nil {
		open = elf.Open
	}

	for _, path := range l.Candidates(img) {
		f, err := open(path)
		if err != nil {
			l.miss(main).Err(err).Str("path", path).Msg("Cannot open debug file")
			continue
		}

		dw, err := f.DWARF()
		if err != nil {
			errors.DeferClose(l.Logger, f, "failed to close debug file")
			l.miss(main).Err(err).Str("path", path).Msg("Debug file has no DWARF")
			continue
		}

		l.Logger.Debug().Str("file", img.Filename).Str("debug_file", path).Msg("Using separate debug file")
		return &Debug{Path: path, File: f, DWARF: dw}, nil
	}

	return nil, ErrNotFound
}

func (l *Locator) miss(main bool) *zerolog.Event {
	if main {
		return l.Logger.Warn()
	}
	return l.Logger.Debug()
}

func realDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
