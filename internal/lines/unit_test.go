package lines

import (
	"debug/dwarf"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/covmap/internal/errors"
	"github.com/coral-mesh/covmap/internal/segment"
	"github.com/coral-mesh/covmap/internal/testutil"
)

var le = binary.LittleEndian

// compileUnit is one DWARF 4 unit with a name, a line table offset and a
// compilation directory.
type compileUnit struct {
	name     string
	stmtList uint32
	compDir  string
}

// debugAbbrev declares a childless DW_TAG_compile_unit carrying DW_AT_name,
// DW_AT_stmt_list and DW_AT_comp_dir.
func debugAbbrev() []byte {
	return []byte{
		1, 0x11, 0, // code 1, DW_TAG_compile_unit, no children
		0x03, 0x08, // DW_AT_name, DW_FORM_string
		0x10, 0x17, // DW_AT_stmt_list, DW_FORM_sec_offset
		0x1b, 0x08, // DW_AT_comp_dir, DW_FORM_string
		0, 0,
		0,
	}
}

func debugInfo(units ...compileUnit) []byte {
	var out []byte
	for _, u := range units {
		var body []byte
		body = le.AppendUint16(body, 4) // version
		body = le.AppendUint32(body, 0) // abbrev offset
		body = append(body, 8)          // address size
		body = append(body, 1)          // abbrev code
		body = append(append(body, u.name...), 0)
		body = le.AppendUint32(body, u.stmtList)
		body = append(append(body, u.compDir...), 0)

		out = le.AppendUint32(out, uint32(len(body)))
		out = append(out, body...)
	}
	return out
}

// debugLine is one DWARF 4 line program for file b.c: line 10 at 0x1000,
// line 11 at 0x1002, end of sequence at 0x1005.
func debugLine() []byte {
	header := []byte{
		1,    // minimum_instruction_length
		1,    // maximum_operations_per_instruction
		1,    // default_is_stmt
		0xfb, // line_base -5
		14,   // line_range
		13,   // opcode_base
		0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1,
		0, // no include directories
	}
	header = append(header, "b.c\x00"...)
	header = append(header, 0, 0, 0) // dir, mtime, length
	header = append(header, 0)       // end of file names

	program := []byte{0x00, 9, 0x02} // DW_LNE_set_address
	program = le.AppendUint64(program, 0x1000)
	program = append(program,
		0x03, 9, // advance_line +9
		0x01,    // copy
		0x02, 2, // advance_pc 2
		0x03, 1, // advance_line +1
		0x01,    // copy
		0x02, 3, // advance_pc 3
		0x00, 1, 0x01, // DW_LNE_end_sequence
	)

	var body []byte
	body = le.AppendUint16(body, 4)
	body = le.AppendUint32(body, uint32(len(header)))
	body = append(body, header...)
	body = append(body, program...)

	out := le.AppendUint32(nil, uint32(len(body)))
	return append(out, body...)
}

func TestExtract_MalformedUnitIsSkipped(t *testing.T) {
	line := debugLine()
	dw, err := dwarf.New(debugAbbrev(), nil, nil, debugInfo(
		compileUnit{name: "a.c", stmtList: uint32(len(line)) + 0x100, compDir: "/nonexistent/bad"},
		compileUnit{name: "b.c", stmtList: 0, compDir: "/nonexistent/good"},
	), line, nil, nil, nil)
	require.NoError(t, err)

	exec := segment.List{segment.New(nil, 0x1000, 0x1000, 0x10)}
	rec := &recorder{}
	e := &Extractor{
		ExecSegments: exec,
		CurSegments:  exec,
		Listeners:    []Listener{rec},
		Logger:       testutil.NewTestLogger(t),
	}

	stats, err := e.Extract(dw, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Units)
	assert.Equal(t, 1, stats.SkippedUnits)
	assert.Equal(t, 2, stats.Emitted)
	assert.Equal(t, []lineEvent{
		{file: "/nonexistent/good/b.c", line: 10, addr: 0x1000},
		{file: "/nonexistent/good/b.c", line: 11, addr: 0x1002},
	}, rec.events)
}

func TestExtractUnit_ReportsUnitParseError(t *testing.T) {
	dw, err := dwarf.New(debugAbbrev(), nil, nil, debugInfo(
		compileUnit{name: "a.c", stmtList: 0x100, compDir: "/nonexistent"},
	), nil, nil, nil, nil)
	require.NoError(t, err)

	cu, err := dw.Reader().Next()
	require.NoError(t, err)
	require.NotNil(t, cu)

	e := &Extractor{Logger: testutil.NewTestLogger(t)}
	var stats Stats
	err = e.extractUnit(dw, cu, 0, &stats)
	assert.ErrorIs(t, err, errors.ErrUnitParse)
}
