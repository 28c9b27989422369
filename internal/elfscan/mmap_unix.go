//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package elfscan

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps f read-only. The returned release func unmaps it.
func mapFile(f *os.File, size int) ([]byte, func() error, error) {
	if size == 0 {
		return nil, func() error { return nil }, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_PRIVATE) // #nosec G115 -- fd fits in int
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
