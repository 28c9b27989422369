//go:build linux

package procmaps

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// Read returns the mappings of pid.
func Read(pid int) ([]Mapping, error) {
	proc, err := procfs.NewProc(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		return nil, fmt.Errorf("failed to read maps of process %d: %w", pid, err)
	}
	return FromProcMaps(maps), nil
}

// FromProcMaps converts procfs mappings.
func FromProcMaps(maps []*procfs.ProcMap) []Mapping {
	out := make([]Mapping, 0, len(maps))
	for _, m := range maps {
		out = append(out, Mapping{
			Start:  uint64(m.StartAddr),
			End:    uint64(m.EndAddr),
			Offset: uint64(m.Offset), // #nosec G115 -- offsets are non-negative
			Exec:   m.Perms != nil && m.Perms.Execute,
			Path:   m.Pathname,
		})
	}
	return out
}
