// Package segment models contiguous mapped regions of a binary image and the
// address translation between link-time and load-time addresses.
package segment

// Segment is one mapped region. Data, when non-nil, borrows the bytes backing
// the region from the image that produced it and is only valid while that
// image is open.
type Segment struct {
	data     []byte
	physBase uint64
	virtBase uint64
	size     uint64
}

// New returns a segment covering [physBase, physBase+size) that translates to
// virtBase.
func New(data []byte, physBase, virtBase, size uint64) Segment {
	return Segment{
		data:     data,
		physBase: physBase,
		virtBase: virtBase,
		size:     size,
	}
}

// Data returns the bytes backing the segment, or nil.
func (s Segment) Data() []byte {
	return s.data
}

// Base returns the address the segment is tested against.
func (s Segment) Base() uint64 {
	return s.physBase
}

// VirtualBase returns the address the segment translates to.
func (s Segment) VirtualBase() uint64 {
	return s.virtBase
}

// Size returns the segment length in bytes.
func (s Segment) Size() uint64 {
	return s.size
}

// Contains reports whether addr lies inside the segment.
func (s Segment) Contains(addr uint64) bool {
	return addr >= s.physBase && addr-s.physBase < s.size
}

// Adjust translates addr from the segment's physical base to its virtual base.
func (s Segment) Adjust(addr uint64) uint64 {
	return addr - s.physBase + s.virtBase
}

// List is an ordered set of segments.
type List []Segment

// Find returns the first segment containing addr.
func (l List) Find(addr uint64) (Segment, bool) {
	for _, s := range l {
		if s.Contains(addr) {
			return s, true
		}
	}
	return Segment{}, false
}

// Contains reports whether any segment contains addr.
func (l List) Contains(addr uint64) bool {
	_, ok := l.Find(addr)
	return ok
}

// Translate adjusts addr through the first segment containing it. Addresses
// outside every segment are returned unchanged.
func (l List) Translate(addr uint64) uint64 {
	if s, ok := l.Find(addr); ok {
		return s.Adjust(addr)
	}
	return addr
}

// WithoutData returns a copy of l whose segments keep their bases and sizes
// but no bytes. The copy stays valid after the backing mapping is released.
func (l List) WithoutData() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, s := range l {
		out[i] = New(nil, s.Base(), s.VirtualBase(), s.Size())
	}
	return out
}
