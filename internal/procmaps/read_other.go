//go:build !linux

package procmaps

import (
	"fmt"
	"runtime"
)

// Read is only supported on linux.
func Read(pid int) ([]Mapping, error) {
	return nil, fmt.Errorf("reading the mappings of process %d is not supported on %s", pid, runtime.GOOS)
}
