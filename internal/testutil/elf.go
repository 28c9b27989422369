package testutil

import (
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// NTGNUBuildID is the GNU build-id note type.
const NTGNUBuildID = 3

// ELFSection describes one section written by ELFBuilder.
type ELFSection struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Addr  uint64
	Align uint64
	Data  []byte
	// Size overrides len(Data), for SHT_NOBITS sections.
	Size uint64
}

// ELFBuilder writes minimal little-endian ELF files with a section table and
// no program headers.
type ELFBuilder struct {
	Class    elf.Class
	Type     elf.Type
	Machine  elf.Machine
	Sections []ELFSection
}

// NewELF returns a builder for an x86-64 (or i386 for ELFCLASS32) executable.
func NewELF(class elf.Class) *ELFBuilder {
	machine := elf.EM_X86_64
	if class == elf.ELFCLASS32 {
		machine = elf.EM_386
	}
	return &ELFBuilder{
		Class:   class,
		Type:    elf.ET_EXEC,
		Machine: machine,
	}
}

// WithType sets e_type.
func (b *ELFBuilder) WithType(t elf.Type) *ELFBuilder {
	b.Type = t
	return b
}

// AddSection appends a section.
func (b *ELFBuilder) AddSection(s ELFSection) *ELFBuilder {
	b.Sections = append(b.Sections, s)
	return b
}

// AddText appends an executable .text section at addr.
func (b *ELFBuilder) AddText(addr uint64, code []byte) *ELFBuilder {
	return b.AddSection(ELFSection{
		Name:  ".text",
		Type:  elf.SHT_PROGBITS,
		Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		Addr:  addr,
		Align: 16,
		Data:  code,
	})
}

// AddRodata appends a .rodata section.
func (b *ELFBuilder) AddRodata(data []byte) *ELFBuilder {
	return b.AddSection(ELFSection{
		Name:  ".rodata",
		Type:  elf.SHT_PROGBITS,
		Flags: elf.SHF_ALLOC,
		Align: 1,
		Data:  data,
	})
}

// AddBuildID appends a .note.gnu.build-id section carrying id.
func (b *ELFBuilder) AddBuildID(id []byte) *ELFBuilder {
	return b.AddSection(ELFSection{
		Name:  ".note.gnu.build-id",
		Type:  elf.SHT_NOTE,
		Flags: elf.SHF_ALLOC,
		Align: 4,
		Data:  Note("GNU", NTGNUBuildID, id),
	})
}

// AddDebugLink appends a .gnu_debuglink section.
func (b *ELFBuilder) AddDebugLink(name string, crc uint32) *ELFBuilder {
	data := append([]byte(name), 0)
	for len(data)%4 != 0 {
		data = append(data, 0)
	}
	data = binary.LittleEndian.AppendUint32(data, crc)
	return b.AddSection(ELFSection{
		Name:  ".gnu_debuglink",
		Type:  elf.SHT_PROGBITS,
		Align: 4,
		Data:  data,
	})
}

// Note encodes one ELF note record with 4-byte padding.
func Note(name string, typ uint32, desc []byte) []byte {
	nameBytes := append([]byte(name), 0)
	out := binary.LittleEndian.AppendUint32(nil, uint32(len(nameBytes))) // #nosec G115
	out = binary.LittleEndian.AppendUint32(out, uint32(len(desc)))       // #nosec G115
	out = binary.LittleEndian.AppendUint32(out, typ)
	out = append(out, pad4(nameBytes)...)
	return append(out, pad4(desc)...)
}

func pad4(b []byte) []byte {
	out := append([]byte(nil), b...)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// Bytes encodes the file.
func (b *ELFBuilder) Bytes() []byte {
	is64 := b.Class == elf.ELFCLASS64
	ehsize, shentsize := 52, 40
	if is64 {
		ehsize, shentsize = 64, 64
	}

	// Section 0 is SHT_NULL, the name table goes last.
	shstrtab := []byte{0}
	nameOff := make([]uint32, len(b.Sections)+1)
	for i, s := range b.Sections {
		nameOff[i] = uint32(len(shstrtab)) // #nosec G115
		shstrtab = append(append(shstrtab, s.Name...), 0)
	}
	nameOff[len(b.Sections)] = uint32(len(shstrtab)) // #nosec G115
	shstrtab = append(append(shstrtab, ".shstrtab"...), 0)

	sections := append(append([]ELFSection(nil), b.Sections...), ELFSection{
		Name: ".shstrtab",
		Type: elf.SHT_STRTAB,
		Data: shstrtab,
	})

	out := make([]byte, ehsize)
	offsets := make([]uint64, len(sections))
	for i, s := range sections {
		for len(out)%8 != 0 {
			out = append(out, 0)
		}
		offsets[i] = uint64(len(out))
		if s.Type != elf.SHT_NOBITS {
			out = append(out, s.Data...)
		}
	}
	for len(out)%8 != 0 {
		out = append(out, 0)
	}
	shoff := uint64(len(out))
	shnum := len(sections) + 1

	le := binary.LittleEndian
	out = append(out, make([]byte, shentsize)...) // null section
	for i, s := range sections {
		size := uint64(len(s.Data))
		if s.Size != 0 {
			size = s.Size
		}
		nameIdx := nameOff[i]
		entry := make([]byte, shentsize)
		if is64 {
			le.PutUint32(entry[0:], nameIdx)
			le.PutUint32(entry[4:], uint32(s.Type))
			le.PutUint64(entry[8:], uint64(s.Flags))
			le.PutUint64(entry[16:], s.Addr)
			le.PutUint64(entry[24:], offsets[i])
			le.PutUint64(entry[32:], size)
			le.PutUint64(entry[48:], s.Align)
		} else {
			le.PutUint32(entry[0:], nameIdx)
			le.PutUint32(entry[4:], uint32(s.Type))
			le.PutUint32(entry[8:], uint32(s.Flags))
			le.PutUint32(entry[12:], uint32(s.Addr))     // #nosec G115
			le.PutUint32(entry[16:], uint32(offsets[i])) // #nosec G115
			le.PutUint32(entry[20:], uint32(size))       // #nosec G115
			le.PutUint32(entry[32:], uint32(s.Align))    // #nosec G115
		}
		out = append(out, entry...)
	}

	copy(out[0:], elf.ELFMAG)
	out[elf.EI_CLASS] = byte(b.Class)
	out[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	out[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	le.PutUint16(out[16:], uint16(b.Type))
	le.PutUint16(out[18:], uint16(b.Machine))
	le.PutUint32(out[20:], uint32(elf.EV_CURRENT))
	if is64 {
		le.PutUint64(out[40:], shoff)
		le.PutUint16(out[52:], uint16(ehsize))
		le.PutUint16(out[58:], uint16(shentsize))
		le.PutUint16(out[60:], uint16(shnum))   // #nosec G115
		le.PutUint16(out[62:], uint16(shnum-1)) // #nosec G115
	} else {
		le.PutUint32(out[32:], uint32(shoff)) // #nosec G115
		le.PutUint16(out[40:], uint16(ehsize))
		le.PutUint16(out[46:], uint16(shentsize))
		le.PutUint16(out[48:], uint16(shnum))   // #nosec G115
		le.PutUint16(out[50:], uint16(shnum-1)) // #nosec G115
	}

	return out
}

// WriteELF writes the file into dir and returns its path.
func (b *ELFBuilder) WriteELF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0o755); err != nil { // #nosec G306
		t.Fatalf("failed to write ELF file: %v", err)
	}
	return path
}

// SelfBinary returns the path of the running test binary, skipping the test
// when it carries no DWARF line info.
func SelfBinary(t *testing.T) string {
	t.Helper()
	path, err := os.Executable()
	if err != nil {
		t.Skipf("cannot locate test binary: %v", err)
	}
	f, err := elf.Open(path)
	if err != nil {
		t.Skipf("test binary is not ELF: %v", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.DWARF(); err != nil {
		t.Skipf("test binary has no DWARF: %v", err)
	}
	return path
}

// CopyWithType copies an ELF file into dir and patches its e_type.
func CopyWithType(t *testing.T, src, dir string, typ elf.Type) string {
	t.Helper()
	// #nosec G304 -- test input.
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("failed to read %s: %v", src, err)
	}
	if len(data) < 18 || data[elf.EI_DATA] != byte(elf.ELFDATA2LSB) {
		t.Skipf("%s is not a little-endian ELF file", src)
	}
	binary.LittleEndian.PutUint16(data[16:], uint16(typ))

	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.WriteFile(dst, data, 0o755); err != nil { // #nosec G306
		t.Fatalf("failed to write %s: %v", dst, err)
	}
	return dst
}
