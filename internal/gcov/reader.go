package gcov

import (
	"encoding/binary"
	"fmt"

	"github.com/coral-mesh/covmap/internal/errors"
)

// reader decodes the 4-byte words of a graph file in its byte order.
type reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
	major int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated word at offset %d", errors.ErrGraphParse, r.pos)
	}
	v := r.order.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// str reads a length-prefixed string. Before GCC 13 the length counts padded
// words, from 13 on it counts bytes including the terminator.
func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}

	size := uint64(n)
	if r.major < 13 {
		size *= 4
	}
	if size > uint64(r.remaining()) {
		return "", fmt.Errorf("%w: string of %d bytes at offset %d overruns file", errors.ErrGraphParse, size, r.pos)
	}

	b := r.data[r.pos : r.pos+int(size)]
	r.pos += int(size)
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

// sub returns a reader over the next n bytes and advances past them.
func (r *reader) sub(n uint64) (*reader, error) {
	if n > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: record of %d bytes at offset %d overruns file", errors.ErrGraphParse, n, r.pos)
	}
	s := &reader{
		data:  r.data[r.pos : r.pos+int(n)],
		order: r.order,
		major: r.major,
	}
	r.pos += int(n)
	return s, nil
}
