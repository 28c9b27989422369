// Package elfscan maps ELF images and extracts what address-to-line
// resolution needs from them: executable segments, the build-id note, the
// debug link and compiler-embedded coverage file names.
package elfscan

import (
	"bytes"
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/covmap/internal/errors"
	"github.com/coral-mesh/covmap/internal/safe"
	"github.com/coral-mesh/covmap/internal/segment"
)

var elfMagic = []byte(elf.ELFMAG)

// Match reports whether header starts with the ELF magic.
func Match(header []byte) bool {
	return bytes.HasPrefix(header, elfMagic)
}

// Options configures Load.
type Options struct {
	// Segments, when non-empty, are used as the current segments instead of
	// the executable sections.
	Segments segment.List
	// ScanGcda enables the .rodata scan for embedded counts file names.
	ScanGcda bool
	// OnCoverageData is called for every counts file name found by the scan.
	OnCoverageData func(gcda string)
	// Checksum enables the structural checksum.
	Checksum bool
	Logger   zerolog.Logger
}

// Image is a mapped ELF file. Segment data borrows the mapping, so segments
// must not be used after Close.
type Image struct {
	Filename  string
	Class     elf.Class
	Type      elf.Type
	Machine   elf.Machine
	BuildID   string
	DebugLink string
	// DebugLinkCRC is the CRC32 recorded next to DebugLink.
	DebugLinkCRC uint32
	Checksum     uint64

	// CurSegments translate link-time addresses.
	CurSegments segment.List
	// ExecSegments bound which addresses are valid.
	ExecSegments segment.List

	GcdaFiles []string
	// GcnoFiles are the graph files derived from GcdaFiles that exist on disk.
	GcnoFiles []string

	Sections []Section

	data    []byte
	release func() error
}

// Is64Bit reports whether the image is ELFCLASS64.
func (img *Image) Is64Bit() bool {
	return img.Class == elf.ELFCLASS64
}

// IsShared reports whether the image is a shared object or a position
// independent executable.
func (img *Image) IsShared() bool {
	return img.Type == elf.ET_DYN
}

// Section returns the first section named name.
func (img *Image) Section(name string) (Section, bool) {
	for _, s := range img.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// SectionData returns the file bytes of s.
func (img *Image) SectionData(s Section) ([]byte, error) {
	return sectionData(img.data, s)
}

// DWARF decodes the inline debug info from the mapping.
func (img *Image) DWARF() (*dwarf.Data, error) {
	f, err := elf.NewFile(bytes.NewReader(img.data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrFormat, err)
	}
	dw, err := f.DWARF()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrDebugInfoAbsent, err)
	}
	return dw, nil
}

// Close releases the file mapping.
func (img *Image) Close() error {
	if img.release == nil {
		return nil
	}
	release := img.release
	img.release = nil
	img.data = nil
	return release()
}

// Load maps filename and scans its header and section table.
func Load(filename string, opts Options) (*Image, error) {
	data, release, err := open(filename)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Filename: filename,
		data:     data,
		release:  release,
	}
	if err := img.scan(opts); err != nil {
		errors.DeferRelease(opts.Logger, img.Close, "failed to unmap file")
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return img, nil
}

func open(filename string) ([]byte, func() error, error) {
	// #nosec G304 -- the host chooses which binaries to scan.
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errors.ErrOpen, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errors.ErrOpen, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%w: %s is not a regular file", errors.ErrOpen, filename)
	}
	if info.Size() > int64(^uint(0)>>1) {
		return nil, nil, fmt.Errorf("%w: %s is too large to map", errors.ErrOpen, filename)
	}

	data, release, err := mapFile(f, int(info.Size()))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: mmap %s: %w", errors.ErrOpen, filename, err)
	}
	return data, release, nil
}

func (img *Image) scan(opts Options) error {
	h, reader, err := parseHeader(img.data)
	if err != nil {
		return err
	}
	img.Class = h.class
	img.Type = h.typ
	img.Machine = h.machine

	sections, err := readSections(img.data, h, reader)
	if err != nil {
		return err
	}
	img.Sections = sections

	if opts.Checksum {
		img.Checksum = checksum(img.data, h, sections)
	}

	useHost := len(opts.Segments) > 0
	if useHost {
		img.CurSegments = append(segment.List(nil), opts.Segments...)
	}

	for _, s := range sections {
		data, err := sectionData(img.data, s)
		if err != nil {
			return err
		}

		if opts.ScanGcda && s.Name == ".rodata" && data != nil {
			for _, gcda := range ScanGcda(data) {
				img.GcdaFiles = append(img.GcdaFiles, gcda)
				if opts.OnCoverageData != nil {
					opts.OnCoverageData(gcda)
				}
			}
		}

		if s.Type == elf.SHT_NOTE && data != nil && img.BuildID == "" {
			img.BuildID = findBuildID(data, h.order, s.Align)
		}

		if s.Name == ".gnu_debuglink" && data != nil {
			img.DebugLink, img.DebugLinkCRC = parseDebugLink(data, h.order)
		}

		if !s.IsExecutable() || s.Size == 0 {
			continue
		}

		seg := segment.New(data, s.Addr, s.Addr, s.Size)
		if !useHost {
			img.CurSegments = append(img.CurSegments, seg)
		}
		img.ExecSegments = append(img.ExecSegments, seg)
	}

	for _, gcda := range img.GcdaFiles {
		gcno := GcnoPath(gcda)
		if safe.IsRegularFile(gcno) {
			img.GcnoFiles = append(img.GcnoFiles, gcno)
		} else {
			opts.Logger.Debug().Str("gcno", gcno).Msg("Graph file not found")
		}
	}

	opts.Logger.Debug().
		Str("file", img.Filename).
		Str("class", img.Class.String()).
		Str("type", img.Type.String()).
		Str("build_id", img.BuildID).
		Str("debug_link", img.DebugLink).
		Int("exec_segments", len(img.ExecSegments)).
		Msg("Scanned ELF image")

	return nil
}
