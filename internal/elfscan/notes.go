package elfscan

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"encoding/hex"
)

const noteHeaderSize = 12

// GNU note types. debug/elf only defines the core file ones.
const (
	ntGNUABITag  elf.NType = 1
	ntGNUBuildID elf.NType = 3
)

var gnuNoteName = []byte("GNU\x00")

// findBuildID walks the note records of one note section and returns the
// hex-encoded GNU build-id, or "".
func findBuildID(data []byte, order binary.ByteOrder, align uint64) string {
	if align < 4 {
		align = 4
	}
	for len(data) >= noteHeaderSize {
		namesz := uint64(order.Uint32(data[0:]))
		descsz := uint64(order.Uint32(data[4:]))
		typ := elf.NType(order.Uint32(data[8:]))

		nameEnd := noteHeaderSize + namesz
		descStart := alignUp(nameEnd, align)
		descEnd := descStart + descsz
		if nameEnd > uint64(len(data)) || descEnd > uint64(len(data)) || descEnd < descStart {
			return ""
		}

		name := data[noteHeaderSize:nameEnd]
		if typ == ntGNUBuildID && bytes.Equal(name, gnuNoteName) {
			return hex.EncodeToString(data[descStart:descEnd])
		}

		next := alignUp(descEnd, align)
		if next > uint64(len(data)) {
			return ""
		}
		data = data[next:]
	}
	return ""
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// parseDebugLink splits a .gnu_debuglink section into the file name and the
// CRC32 stored in the last four bytes.
func parseDebugLink(data []byte, order binary.ByteOrder) (string, uint32) {
	name := cString(data)
	if len(name) == len(data) {
		return name, 0
	}
	crcOff := alignUp(uint64(len(name))+1, 4)
	if crcOff+4 > uint64(len(data)) {
		return name, 0
	}
	return name, order.Uint32(data[crcOff:])
}
