package elfscan

import (
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/coral-mesh/covmap/internal/errors"
)

// Section is a section header normalized across ELF classes.
type Section struct {
	Name   string
	Type   elf.SectionType
	Flags  elf.SectionFlag
	Addr   uint64
	Offset uint64
	Size   uint64
	Link   uint32
	Align  uint64

	// raw is the undecoded header entry.
	raw []byte
}

// IsExecutable reports whether the section is both allocated and executable.
func (s Section) IsExecutable() bool {
	const want = elf.SHF_ALLOC | elf.SHF_EXECINSTR
	return s.Flags&want == want
}

// header holds the ELF header fields the scanner needs.
type header struct {
	class     elf.Class
	order     binary.ByteOrder
	typ       elf.Type
	machine   elf.Machine
	shoff     uint64
	shentsize uint16
	shnum     uint16
	shstrndx  uint16
	size      int
}

// sectionReader decodes one section header entry. One implementation per ELF
// class is selected when the file header is parsed.
type sectionReader interface {
	entrySize() int
	read(b []byte, order binary.ByteOrder) Section
}

type elf32Reader struct{}

func (elf32Reader) entrySize() int { return 40 }

func (elf32Reader) read(b []byte, order binary.ByteOrder) Section {
	return Section{
		Type:   elf.SectionType(order.Uint32(b[4:])),
		Flags:  elf.SectionFlag(order.Uint32(b[8:])),
		Addr:   uint64(order.Uint32(b[12:])),
		Offset: uint64(order.Uint32(b[16:])),
		Size:   uint64(order.Uint32(b[20:])),
		Link:   order.Uint32(b[24:]),
		Align:  uint64(order.Uint32(b[32:])),
		raw:    b,
	}
}

type elf64Reader struct{}

func (elf64Reader) entrySize() int { return 64 }

func (elf64Reader) read(b []byte, order binary.ByteOrder) Section {
	return Section{
		Type:   elf.SectionType(order.Uint32(b[4:])),
		Flags:  elf.SectionFlag(order.Uint64(b[8:])),
		Addr:   order.Uint64(b[16:]),
		Offset: order.Uint64(b[24:]),
		Size:   order.Uint64(b[32:]),
		Link:   order.Uint32(b[40:]),
		Align:  order.Uint64(b[48:]),
		raw:    b,
	}
}

func parseHeader(data []byte) (*header, sectionReader, error) {
	if !Match(data) || len(data) < elf.EI_NIDENT {
		return nil, nil, fmt.Errorf("%w: bad magic", errors.ErrFormat)
	}

	h := &header{class: elf.Class(data[elf.EI_CLASS])}
	switch elf.Data(data[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		h.order = binary.LittleEndian
	case elf.ELFDATA2MSB:
		h.order = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("%w: unknown data encoding %d", errors.ErrFormat, data[elf.EI_DATA])
	}

	var reader sectionReader
	switch h.class {
	case elf.ELFCLASS32:
		h.size = 52
		if len(data) < h.size {
			return nil, nil, fmt.Errorf("%w: truncated header", errors.ErrFormat)
		}
		h.shoff = uint64(h.order.Uint32(data[32:]))
		h.shentsize = h.order.Uint16(data[46:])
		h.shnum = h.order.Uint16(data[48:])
		h.shstrndx = h.order.Uint16(data[50:])
		reader = elf32Reader{}
	case elf.ELFCLASS64:
		h.size = 64
		if len(data) < h.size {
			return nil, nil, fmt.Errorf("%w: truncated header", errors.ErrFormat)
		}
		h.shoff = h.order.Uint64(data[40:])
		h.shentsize = h.order.Uint16(data[58:])
		h.shnum = h.order.Uint16(data[60:])
		h.shstrndx = h.order.Uint16(data[62:])
		reader = elf64Reader{}
	default:
		return nil, nil, fmt.Errorf("%w: unknown class %d", errors.ErrFormat, data[elf.EI_CLASS])
	}

	h.typ = elf.Type(h.order.Uint16(data[16:]))
	h.machine = elf.Machine(h.order.Uint16(data[18:]))

	return h, reader, nil
}

// readSections decodes the section table and resolves names from the
// section-name string table.
func readSections(data []byte, h *header, reader sectionReader) ([]Section, error) {
	if h.shoff == 0 {
		return nil, nil
	}
	entsize := reader.entrySize()
	if int(h.shentsize) < entsize {
		return nil, fmt.Errorf("%w: section header size %d", errors.ErrFormat, h.shentsize)
	}

	entry := func(i uint64) ([]byte, bool) {
		off := h.shoff + i*uint64(h.shentsize)
		if off < h.shoff || off+uint64(entsize) > uint64(len(data)) {
			return nil, false
		}
		return data[off : off+uint64(entsize)], true
	}

	first, ok := entry(0)
	if !ok {
		return nil, fmt.Errorf("%w: section table out of bounds", errors.ErrFormat)
	}
	s0 := reader.read(first, h.order)

	// Extended numbering keeps the real counts in section 0.
	count := uint64(h.shnum)
	if count == 0 {
		count = s0.Size
	}
	strndx := uint64(h.shstrndx)
	if h.shstrndx == uint16(elf.SHN_XINDEX) {
		strndx = uint64(s0.Link)
	}
	if count > uint64(len(data))/uint64(h.shentsize) {
		return nil, fmt.Errorf("%w: %d sections do not fit the file", errors.ErrFormat, count)
	}

	sections := make([]Section, 0, count)
	for i := uint64(0); i < count; i++ {
		b, ok := entry(i)
		if !ok {
			return nil, fmt.Errorf("%w: section %d out of bounds", errors.ErrFormat, i)
		}
		sections = append(sections, reader.read(b, h.order))
	}

	if strndx == uint64(elf.SHN_UNDEF) || strndx >= count {
		return nil, fmt.Errorf("%w: missing section name table", errors.ErrFormat)
	}
	strtab, err := sectionData(data, sections[strndx])
	if err != nil || strtab == nil {
		return nil, fmt.Errorf("%w: unreadable section name table", errors.ErrFormat)
	}

	for i := range sections {
		nameOff := h.order.Uint32(sections[i].raw[0:])
		if uint64(nameOff) >= uint64(len(strtab)) {
			return nil, fmt.Errorf("%w: section %d name out of bounds", errors.ErrFormat, i)
		}
		sections[i].Name = cString(strtab[nameOff:])
	}

	return sections, nil
}

// sectionData returns the file bytes of s, or nil for sections that occupy no
// file space.
func sectionData(data []byte, s Section) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS || s.Type == elf.SHT_NULL {
		return nil, nil
	}
	end := s.Offset + s.Size
	if end < s.Offset || end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: section %q [%#x, %#x) exceeds file size %#x",
			errors.ErrFormat, s.Name, s.Offset, end, len(data))
	}
	return data[s.Offset:end:end], nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
