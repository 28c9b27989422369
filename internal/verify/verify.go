// Package verify checks that an address lands on a real instruction boundary
// inside an executable segment.
package verify

import (
	"debug/elf"
	"sync"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// Verifier confirms that offset is the start of an instruction in data, where
// data holds the raw bytes of one executable segment.
type Verifier interface {
	Verify(data []byte, offset uint64) bool
}

// ForMachine returns the verifier for an ELF machine. Machines without a
// decoder get a verifier that accepts every offset.
func ForMachine(machine elf.Machine) Verifier {
	switch machine {
	case elf.EM_X86_64:
		return newX86Verifier(64)
	case elf.EM_386:
		return newX86Verifier(32)
	case elf.EM_AARCH64:
		return arm64Verifier{}
	default:
		return permissive{}
	}
}

type permissive struct{}

func (permissive) Verify([]byte, uint64) bool { return true }

type arm64Verifier struct{}

// Verify accepts 4-byte aligned offsets holding a decodable instruction.
func (arm64Verifier) Verify(data []byte, offset uint64) bool {
	if offset%4 != 0 || offset+4 > uint64(len(data)) {
		return false
	}
	_, err := arm64asm.Decode(data[offset : offset+4])
	return err == nil
}

type segmentKey struct {
	first *byte
	n     int
}

// x86Verifier linearly sweeps a segment once and remembers every instruction
// start. Undecodable bytes are skipped one at a time to resynchronize.
type x86Verifier struct {
	mode int

	mu     sync.Mutex
	starts map[segmentKey]bitset
}

func newX86Verifier(mode int) *x86Verifier {
	return &x86Verifier{
		mode:   mode,
		starts: make(map[segmentKey]bitset),
	}
}

func (v *x86Verifier) Verify(data []byte, offset uint64) bool {
	if offset >= uint64(len(data)) {
		return false
	}

	key := segmentKey{first: &data[0], n: len(data)}

	v.mu.Lock()
	starts, ok := v.starts[key]
	if !ok {
		starts = v.sweep(data)
		v.starts[key] = starts
	}
	v.mu.Unlock()

	return starts.has(offset)
}

func (v *x86Verifier) sweep(data []byte) bitset {
	starts := newBitset(len(data))
	for off := 0; off < len(data); {
		starts.set(uint64(off))

		inst, err := x86asm.Decode(data[off:], v.mode)
		if err != nil || inst.Len <= 0 {
			off++
			continue
		}
		off += inst.Len
	}
	return starts
}

type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i uint64) {
	b[i/64] |= 1 << (i % 64)
}

func (b bitset) has(i uint64) bool {
	if i/64 >= uint64(len(b)) {
		return false
	}
	return b[i/64]&(1<<(i%64)) != 0
}
