// Package procmaps turns the memory mappings of a running process into the
// segments and load bias the parser needs.
package procmaps

import (
	"debug/elf"
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/coral-mesh/covmap/internal/safe"
	"github.com/coral-mesh/covmap/internal/segment"
)

// Mapping is one line of /proc/<pid>/maps.
type Mapping struct {
	Start  uint64
	End    uint64
	Offset uint64
	Exec   bool
	Path   string
}

// Executable returns the executable path of pid.
func Executable(pid int) (string, error) {
	p, err := process.NewProcess(int32(pid)) // #nosec G115 -- pids fit in int32
	if err != nil {
		return "", fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	exe, err := p.Exe()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable of process %d: %w", pid, err)
	}
	return exe, nil
}

// Filter returns the executable mappings backed by path.
func Filter(maps []Mapping, path string) []Mapping {
	want := canonical(path)
	var out []Mapping
	for _, m := range maps {
		if m.Exec && m.Path != "" && canonical(m.Path) == want {
			out = append(out, m)
		}
	}
	return out
}

// Segments maps every executable mapping of path back to the link-time
// addresses of the PT_LOAD segment it came from. Each segment translates link
// addresses to runtime addresses.
func Segments(path string, maps []Mapping) (segment.List, error) {
	progs, err := loadProgs(path)
	if err != nil {
		return nil, err
	}

	var out segment.List
	for _, m := range Filter(maps, path) {
		prog := findProg(progs, m.Offset)
		if prog == nil {
			continue
		}
		linkAddr := prog.Vaddr + (m.Offset - prog.Off)
		out = append(out, segment.New(nil, linkAddr, m.Start, m.End-m.Start))
	}
	return out, nil
}

// Bias returns the difference between runtime and link-time addresses of the
// first executable mapping of path. Fixed-address executables give zero.
func Bias(path string, maps []Mapping) (int64, error) {
	segs, err := Segments(path, maps)
	if err != nil {
		return 0, err
	}
	if len(segs) == 0 {
		return 0, fmt.Errorf("%s is not mapped executable", path)
	}
	return safe.Offset(segs[0].VirtualBase(), segs[0].Base()), nil
}

func loadProgs(path string) ([]*elf.Prog, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var progs []*elf.Prog
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			progs = append(progs, p)
		}
	}
	return progs, nil
}

func findProg(progs []*elf.Prog, offset uint64) *elf.Prog {
	for _, p := range progs {
		if offset >= p.Off && offset-p.Off < p.Filesz {
			return p
		}
	}
	return nil
}

func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
