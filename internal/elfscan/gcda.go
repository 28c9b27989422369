package elfscan

import (
	"bytes"
)

var gcdaMarker = []byte("gcda\x00")

// ScanGcda finds NUL-terminated strings ending in "gcda" inside a read-only
// data section. Each match is rewound to the NUL preceding its string. A
// match whose rewind reaches the section start is skipped, NUL or not. This
// is a heuristic: the compiler emits the counts file name as a plain string
// constant.
func ScanGcda(data []byte) []string {
	if len(data) < len(gcdaMarker) {
		return nil
	}

	var out []string
	for i := 0; i+len(gcdaMarker) <= len(data); i++ {
		if !bytes.Equal(data[i:i+len(gcdaMarker)], gcdaMarker) {
			continue
		}

		start := i
		for start > 0 && data[start] != 0 {
			start--
		}
		if start == 0 {
			continue
		}

		out = append(out, string(data[start+1:i+len(gcdaMarker)-1]))
	}
	return out
}

// GcnoPath derives the graph file name from a counts file name by replacing
// its last two characters.
func GcnoPath(gcda string) string {
	if len(gcda) < 2 {
		return gcda
	}
	return gcda[:len(gcda)-2] + "no"
}
