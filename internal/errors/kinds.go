package errors

import (
	"errors"
)

// File-level failures are returned to the host, which skips the file. The
// remaining kinds are absorbed where they occur and only show up in logs.
var (
	// ErrOpen means the file is missing or unreadable.
	ErrOpen = errors.New("cannot open file")

	// ErrFormat means bad magic, an unreadable section table or an unreadable
	// section-name string table.
	ErrFormat = errors.New("malformed object file")

	// ErrDebugInfoAbsent means neither the image nor any companion file
	// carries usable debug info.
	ErrDebugInfoAbsent = errors.New("no debug info")

	// ErrUnitParse means one compile unit's line or file table is malformed.
	ErrUnitParse = errors.New("malformed compile unit")

	// ErrGraphParse means one coverage-graph file is malformed.
	ErrGraphParse = errors.New("malformed coverage graph")
)
