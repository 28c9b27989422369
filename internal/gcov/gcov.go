// Package gcov parses GCC coverage graph (gcno) files into per-line basic
// blocks and synthesizes stable addresses for them.
package gcov

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/covmap/internal/errors"
)

// Magic is "gcno" read as a word in the writer's byte order.
const Magic = 0x67636e6f

// Record tags.
const (
	TagFunction = 0x01000000
	TagBlocks   = 0x01410000
	TagArcs     = 0x01430000
	TagLines    = 0x01450000
)

// BasicBlock maps one source line to one basic block. Index is the position
// of the line within the block's line record.
type BasicBlock struct {
	File     string
	Line     uint32
	Function uint32
	Block    uint32
	Index    uint32
}

// Function is one FUNCTION record.
type Function struct {
	Ident  uint32
	Name   string
	Source string
	Line   uint32
	Blocks uint32
}

// File is a parsed graph file.
type File struct {
	Version uint32
	// Major is the GCC major version decoded from Version.
	Major     int
	Stamp     uint32
	Checksum  uint32
	CWD       string
	Functions []Function
	Blocks    []BasicBlock
}

// Parse decodes a graph file.
func Parse(data []byte) (*File, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header", errors.ErrGraphParse, len(data))
	}

	r := &reader{data: data}
	switch {
	case binary.LittleEndian.Uint32(data) == Magic:
		r.order = binary.LittleEndian
	case binary.BigEndian.Uint32(data) == Magic:
		r.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad magic %#x", errors.ErrGraphParse, binary.LittleEndian.Uint32(data))
	}
	r.pos = 4

	f := &File{}
	f.Version, _ = r.u32()
	f.Stamp, _ = r.u32()
	f.Major = MajorVersion(f.Version)
	r.major = f.Major

	var err error
	if f.Major >= 12 {
		if f.Checksum, err = r.u32(); err != nil {
			return nil, err
		}
	}
	if f.Major >= 9 {
		if f.CWD, err = r.str(); err != nil {
			return nil, err
		}
	}
	if f.Major >= 8 {
		// has_unexecuted_blocks
		if _, err = r.u32(); err != nil {
			return nil, err
		}
	}

	if err := f.parseRecords(r); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) parseRecords(r *reader) error {
	var (
		fn      *Function
		curFile string
	)

	for r.remaining() >= 8 {
		tag, _ := r.u32()
		length, _ := r.u32()
		if tag == 0 {
			break
		}

		size := uint64(length)
		if f.Major < 12 {
			size *= 4
		}
		rec, err := r.sub(size)
		if err != nil {
			return err
		}

		switch tag {
		case TagFunction:
			f.Functions = append(f.Functions, parseFunction(rec))
			fn = &f.Functions[len(f.Functions)-1]
			curFile = fn.Source

		case TagBlocks:
			if fn == nil {
				continue
			}
			if f.Major >= 8 {
				fn.Blocks, _ = rec.u32()
			} else {
				fn.Blocks = uint32(rec.remaining() / 4) // #nosec G115 -- bounded by record size
			}

		case TagLines:
			if fn == nil {
				return fmt.Errorf("%w: line record outside a function", errors.ErrGraphParse)
			}
			if curFile, err = f.parseLines(rec, fn.Ident, curFile); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseFunction reads the ident and, when present, the name and location.
// Fields after the ident changed between GCC releases, so only the ident is
// required.
func parseFunction(rec *reader) Function {
	fn := Function{}
	fn.Ident, _ = rec.u32()

	// lineno_checksum, cfg_checksum
	if _, err := rec.u32(); err != nil {
		return fn
	}
	if _, err := rec.u32(); err != nil {
		return fn
	}

	name, err := rec.str()
	if err != nil {
		return fn
	}
	fn.Name = name

	if rec.major >= 8 {
		// artificial
		if _, err := rec.u32(); err != nil {
			return fn
		}
	}
	if fn.Source, err = rec.str(); err != nil {
		return fn
	}
	fn.Line, _ = rec.u32()
	return fn
}

func (f *File) parseLines(rec *reader, function uint32, file string) (string, error) {
	block, err := rec.u32()
	if err != nil {
		return file, err
	}

	var index uint32
	for rec.remaining() > 0 {
		line, err := rec.u32()
		if err != nil {
			return file, err
		}

		if line != 0 {
			f.Blocks = append(f.Blocks, BasicBlock{
				File:     file,
				Line:     line,
				Function: function,
				Block:    block,
				Index:    index,
			})
			index++
			continue
		}

		name, err := rec.str()
		if err != nil {
			return file, err
		}
		if name == "" {
			break
		}
		file = name
	}
	return file, nil
}

// MajorVersion decodes the GCC major version from a graph file version word.
// GCC 5 and later write the major as a letter and a digit ("B21*" is 12.1),
// older releases as one digit ("407*" is 4.7).
func MajorVersion(version uint32) int {
	c0 := byte(version >> 24)
	c1 := byte(version >> 16)
	if c0 >= 'A' {
		return int(c0-'A')*10 + int(c1-'0')
	}
	return int(c0 - '0')
}

// Address returns the synthetic address of a basic block line. The same
// inputs always give the same address.
func Address(file string, function, block, index uint32) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:], function)
	binary.LittleEndian.PutUint32(buf[4:], block)
	binary.LittleEndian.PutUint32(buf[8:], index)

	h := xxh3.New()
	_, _ = h.WriteString(file)
	_, _ = h.Write(buf[:])
	return h.Sum64()
}
