// Package safe provides bounded file access and address arithmetic helpers.
package safe

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned by ReadFile when a file exceeds its size limit.
var ErrTooLarge = stderrors.New("file exceeds size limit")

// DefaultMaxFileSize applies when ReadFile is given no limit.
const DefaultMaxFileSize = 64 << 20

// ReadFile reads a regular file of at most maxSize bytes, following symlinks.
// A zero or negative maxSize means DefaultMaxFileSize. The limit is enforced
// on the bytes read as well as the size reported by stat, so a file growing
// underneath us is still rejected.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	// #nosec G304 -- callers pass paths derived from the scanned binaries.
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%s: %w (%d > %d bytes)", path, ErrTooLarge, info.Size(), maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s: %w (grew past %d bytes)", path, ErrTooLarge, maxSize)
	}
	return data, nil
}

// IsRegularFile reports whether path names an existing regular file,
// following symlinks.
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
