package elfscan

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coral-mesh/covmap/internal/testutil"
)

func TestFindBuildID(t *testing.T) {
	id := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x10}
	le := binary.LittleEndian

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "gnu build-id",
			data: testutil.Note("GNU", uint32(ntGNUBuildID), id),
			want: "0123456789abcdef10",
		},
		{
			name: "after another note",
			data: append(
				testutil.Note("GNU", uint32(ntGNUABITag), []byte{0, 0, 0, 0, 3, 0, 0, 0}),
				testutil.Note("GNU", uint32(ntGNUBuildID), id)...,
			),
			want: "0123456789abcdef10",
		},
		{
			name: "other owner",
			data: testutil.Note("Go", uint32(ntGNUBuildID), id),
			want: "",
		},
		{
			name: "truncated header",
			data: []byte{4, 0, 0},
			want: "",
		},
		{
			name: "desc overruns section",
			data: testutil.Note("GNU", uint32(ntGNUBuildID), id)[:20],
			want: "",
		},
		{
			name: "huge namesz",
			data: append(le.AppendUint32(nil, 0xffffffff), make([]byte, 12)...),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findBuildID(tt.data, le, 4))
		})
	}
}

func TestParseDebugLink(t *testing.T) {
	le := binary.LittleEndian

	name, crc := parseDebugLink(append([]byte("app.debug\x00\x00\x00"), le.AppendUint32(nil, 0x11223344)...), le)
	assert.Equal(t, "app.debug", name)
	assert.Equal(t, uint32(0x11223344), crc)

	name, crc = parseDebugLink([]byte("app.debug\x00"), le)
	assert.Equal(t, "app.debug", name)
	assert.Zero(t, crc)

	name, _ = parseDebugLink([]byte("unterminated"), le)
	assert.Equal(t, "unterminated", name)
}
