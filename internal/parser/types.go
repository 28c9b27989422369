package parser

import (
	"strings"

	"github.com/coral-mesh/covmap/internal/lines"
	"github.com/coral-mesh/covmap/internal/segment"
)

// Flags describe what kind of file a File event reports.
type Flags uint

const (
	// FlagNone marks the main binary.
	FlagNone Flags = 0
	// FlagSolib marks a shared object loaded after the main binary.
	FlagSolib Flags = 1 << 0
	// FlagCoverageData marks a gcda file named inside a binary.
	FlagCoverageData Flags = 1 << 1
)

func (f Flags) String() string {
	if f == FlagNone {
		return "main"
	}
	var parts []string
	if f&FlagSolib != 0 {
		parts = append(parts, "solib")
	}
	if f&FlagCoverageData != 0 {
		parts = append(parts, "coverage-data")
	}
	return strings.Join(parts, "|")
}

// File is one discovered input file.
type File struct {
	Path  string
	Flags Flags
	// Segments carry bases and sizes only. Their Data is nil, so listeners
	// may keep them after the image is released.
	Segments segment.List
}

// FileListener receives File events.
type FileListener interface {
	OnFile(file File)
}

// FileListenerFunc adapts a function to FileListener.
type FileListenerFunc func(file File)

// OnFile calls f.
func (f FileListenerFunc) OnFile(file File) {
	f(file)
}

// LineListener receives (file, line, address) events.
type LineListener = lines.Listener

// LineListenerFunc adapts a function to LineListener.
type LineListenerFunc = lines.ListenerFunc

// MatchQuality is how well a parser handles a file.
type MatchQuality int

const (
	MatchNone MatchQuality = iota
	MatchPerfect
)

// PossibleHits is how many hits a parser's breakpoints can record.
type PossibleHits int

const (
	// HitsSingle breakpoints report only the first hit.
	HitsSingle PossibleHits = iota
	// HitsLimited breakpoints are cleared after a hit and may be re-armed.
	HitsLimited
	// HitsUnlimited breakpoints count every hit.
	HitsUnlimited
)

func (h PossibleHits) String() string {
	switch h {
	case HitsSingle:
		return "single"
	case HitsLimited:
		return "limited"
	case HitsUnlimited:
		return "unlimited"
	default:
		return "unknown"
	}
}

// Filter decides which source files are reported. Parsers hold it for their
// collaborators and do not consult it.
type Filter interface {
	RunFilters(file string) bool
}

// FileParser is the contract a registry dispatches on.
type FileParser interface {
	Name() string
	MatchParser(filename string, header []byte) MatchQuality
	MaxPossibleHits() PossibleHits
	Setup(filter Filter)
	RegisterLineListener(l LineListener)
	RegisterFileListener(l FileListener)
	Register(filename string, segments segment.List) error
	Parse() error
	FinalizeMainRelocation(bias int64) error
	Close() error
}

// State is the parse state of the current image.
type State int

const (
	StateUnparsed State = iota
	StateRegistered
	StateDeferred
	StateLinesExtracted
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUnparsed:
		return "unparsed"
	case StateRegistered:
		return "registered"
	case StateDeferred:
		return "deferred"
	case StateLinesExtracted:
		return "lines-extracted"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}
