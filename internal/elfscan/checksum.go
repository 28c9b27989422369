package elfscan

import (
	"debug/elf"

	"github.com/zeebo/xxh3"
)

// checksum hashes the ELF header, every section header and the contents of
// allocated sections. Two builds of the same program differ here whenever
// their loaded image differs.
func checksum(data []byte, h *header, sections []Section) uint64 {
	hasher := xxh3.New()
	_, _ = hasher.Write(data[:h.size])
	for _, s := range sections {
		_, _ = hasher.Write(s.raw)
		if s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		if b, err := sectionData(data, s); err == nil {
			_, _ = hasher.Write(b)
		}
	}
	return hasher.Sum64()
}
