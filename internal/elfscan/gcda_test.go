package elfscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanGcda(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{name: "empty", data: "", want: nil},
		{name: "shorter than marker", data: "gcd", want: nil},
		{name: "marker only", data: "gcda\x00", want: nil},
		{name: "string at section start", data: "/a/b.gcda\x00", want: nil},
		{name: "NUL at section start", data: "\x00/a/b.gcda\x00", want: nil},
		{name: "single", data: "x\x00/a/b.gcda\x00", want: []string{"/a/b.gcda"}},
		{
			name: "multiple",
			data: "x\x00/a/b.gcda\x00junk\x00/c/d.gcda\x00",
			want: []string{"/a/b.gcda", "/c/d.gcda"},
		},
		{name: "needs terminator", data: "x\x00/a/b.gcdax\x00", want: nil},
		{name: "ends at section end without terminator", data: "x\x00/a/b.gcda", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScanGcda([]byte(tt.data)))
		})
	}
}

func TestScanGcda_DoesNotReadPastSection(t *testing.T) {
	backing := []byte("\x00gcda\x00/x.gcda\x00")
	// The slice ends before the marker terminator, capacity included.
	section := backing[:4:4]
	assert.Nil(t, ScanGcda(section))
}

func TestGcnoPath(t *testing.T) {
	assert.Equal(t, "foo.gcno", GcnoPath("foo.gcda"))
	assert.Equal(t, "/build/obj/a.gcno", GcnoPath("/build/obj/a.gcda"))
	assert.Equal(t, "x", GcnoPath("x"))
}
