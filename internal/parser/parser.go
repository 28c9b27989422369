// Package parser drives the address-to-line mapping of an ELF main binary and
// the shared objects loaded after it.
package parser

import (
	stderrors "errors"
	"fmt"
	"math/bits"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/covmap/internal/capabilities"
	"github.com/coral-mesh/covmap/internal/config"
	"github.com/coral-mesh/covmap/internal/debuginfo"
	"github.com/coral-mesh/covmap/internal/elfscan"
	"github.com/coral-mesh/covmap/internal/errors"
	"github.com/coral-mesh/covmap/internal/gcov"
	"github.com/coral-mesh/covmap/internal/lines"
	"github.com/coral-mesh/covmap/internal/safe"
	"github.com/coral-mesh/covmap/internal/segment"
	"github.com/coral-mesh/covmap/internal/verify"
)

var (
	// ErrNotRegistered is returned by Parse before any file was registered.
	ErrNotRegistered = stderrors.New("no file registered")
	// ErrAlreadyParsed is returned when the current image was already parsed.
	ErrAlreadyParsed = stderrors.New("image already parsed")
	// ErrMainDeferred is returned by Register while the main binary still
	// waits for its relocation.
	ErrMainDeferred = stderrors.New("main binary is waiting for its relocation")
	// ErrNotDeferred is returned by FinalizeMainRelocation when no main binary
	// is pending.
	ErrNotDeferred = stderrors.New("no main binary awaiting relocation")
)

// Options configures a Parser.
type Options struct {
	// Config supplies the option keys. Nil means defaults.
	Config config.Store
	// Capabilities receives the handle-solibs toggle. Nil means the process
	// wide registry.
	Capabilities *capabilities.Registry
	Logger       zerolog.Logger
}

// Parser maps one image at a time. The first registered file is the main
// binary; every later one is a shared object.
type Parser struct {
	logger  zerolog.Logger
	caps    *capabilities.Registry
	locator *debuginfo.Locator
	paths   *lines.PathResolver
	filter  Filter

	verifyAddresses bool
	gcov            bool
	maxGcnoSize     int64

	lineListeners []LineListener
	fileListeners []FileListener

	state        State
	main         bool
	staticMain   bool
	checksum     uint64
	filename     string
	hostSegments segment.List
	image        *elfscan.Image
}

// New creates a parser.
func New(opts Options) (*Parser, error) {
	store := opts.Config
	if store == nil {
		store = config.DefaultConfig()
	}
	caps := opts.Capabilities
	if caps == nil {
		caps = capabilities.Default()
	}
	logger := opts.Logger.With().Str("component", "elf-parser").Logger()

	paths, err := lines.NewPathResolver(
		store.KeyAsString(config.KeyOrigPathPrefix),
		store.KeyAsString(config.KeyNewPathPrefix),
		store.KeyAsInt(config.KeyPathCacheSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create path cache: %w", err)
	}

	return &Parser{
		logger:          logger,
		caps:            caps,
		locator:         debuginfo.NewLocator(store.KeyAsString(config.KeyDebugRoot), opts.Logger),
		paths:           paths,
		verifyAddresses: store.KeyAsInt(config.KeyVerify) != 0,
		gcov:            store.KeyAsInt(config.KeyGcov) != 0,
		maxGcnoSize:     int64(store.KeyAsInt(config.KeyMaxGcnoSize)),
		main:            true,
	}, nil
}

// Name identifies the parser.
func (p *Parser) Name() string {
	return "ELF"
}

// MaxPossibleHits reports HitsLimited: breakpoints are cleared after a hit.
func (p *Parser) MaxPossibleHits() PossibleHits {
	return HitsLimited
}

// MatchParser reports a perfect match for ELF headers.
func (p *Parser) MatchParser(_ string, header []byte) MatchQuality {
	if elfscan.Match(header) {
		return MatchPerfect
	}
	return MatchNone
}

// Setup stores the filter.
func (p *Parser) Setup(filter Filter) {
	p.filter = filter
}

// Filter returns the filter passed to Setup.
func (p *Parser) Filter() Filter {
	return p.filter
}

// RegisterLineListener adds a line listener.
func (p *Parser) RegisterLineListener(l LineListener) {
	p.lineListeners = append(p.lineListeners, l)
}

// RegisterFileListener adds a file listener.
func (p *Parser) RegisterFileListener(l FileListener) {
	p.fileListeners = append(p.fileListeners, l)
}

// State returns the parse state of the current image.
func (p *Parser) State() State {
	return p.state
}

// IsMain reports whether the current image is the main binary.
func (p *Parser) IsMain() bool {
	return p.main
}

// Checksum returns the structural checksum of the main binary.
func (p *Parser) Checksum() uint64 {
	return p.checksum
}

// Image returns the current image, or nil.
func (p *Parser) Image() *elfscan.Image {
	return p.image
}

// Register loads filename and announces it to the file listeners. Segments,
// when given, translate addresses instead of the executable sections.
func (p *Parser) Register(filename string, segments segment.List) error {
	if p.state == StateDeferred {
		return ErrMainDeferred
	}

	img, err := elfscan.Load(filename, elfscan.Options{
		Segments: segments,
		Checksum: p.main && p.checksum == 0,
		Logger:   p.logger,
	})
	if err != nil {
		p.logger.Debug().Err(err).Str("file", filename).Msg("Cannot load file")
		return err
	}

	p.replaceImage(img)
	p.filename = filename
	p.hostSegments = segments
	p.staticMain = false

	if p.main {
		if img.Is64Bit() != (bits.UintSize == 64) {
			p.caps.Remove(capabilities.HandleSolibs)
		} else {
			p.caps.Add(capabilities.HandleSolibs)
		}
		if p.checksum == 0 {
			p.checksum = img.Checksum
		}
	}

	flags := FlagNone
	if !p.main {
		flags = FlagSolib
	}
	p.emitFile(File{Path: filename, Flags: flags, Segments: img.CurSegments.WithoutData()})

	p.state = StateRegistered
	return nil
}

// Parse extracts the lines of the current image with no relocation. A
// position-independent main binary is deferred until FinalizeMainRelocation.
func (p *Parser) Parse() error {
	switch p.state {
	case StateUnparsed:
		return ErrNotRegistered
	case StateDeferred:
		return nil
	case StateFinalized:
		return ErrAlreadyParsed
	}

	if p.main && p.image.IsShared() {
		p.logger.Debug().Str("file", p.filename).Msg("Deferring position-independent main binary")
		p.state = StateDeferred
		return nil
	}

	if err := p.extract(0); err != nil {
		return err
	}

	if p.main {
		p.staticMain = true
	}
	p.main = false
	p.state = StateFinalized
	return nil
}

// FinalizeMainRelocation extracts the deferred main binary with its load
// bias. On a fixed-address main binary a non-zero bias only warns, since its
// segments were already announced unrelocated.
func (p *Parser) FinalizeMainRelocation(bias int64) error {
	p.logger.Debug().Msgf("main file relocation = %#x", bias)

	switch {
	case p.state == StateDeferred:
		if err := p.extract(bias); err != nil {
			return err
		}
		p.main = false
		p.state = StateFinalized
		return nil

	case p.main && p.state == StateRegistered && !p.image.IsShared():
		p.warnStatic(bias)
		return p.Parse()

	case p.staticMain:
		p.warnStatic(bias)
		return nil

	default:
		return ErrNotDeferred
	}
}

func (p *Parser) warnStatic(bias int64) {
	if bias != 0 {
		p.logger.Warn().
			Str("file", p.filename).
			Msgf("Got a static executable with relocation=%#x, probably the trace won't work", bias)
	}
}

// Close releases the current image.
func (p *Parser) Close() error {
	if p.image == nil {
		return nil
	}
	img := p.image
	p.image = nil
	return img.Close()
}

func (p *Parser) replaceImage(img *elfscan.Image) {
	if p.image != nil {
		errors.DeferClose(p.logger, p.image, "failed to release image")
	}
	p.image = img
}

// extract rescans the current file and emits its lines. Gcov mode with at
// least one graph file on disk uses the graphs, otherwise DWARF.
func (p *Parser) extract(relocation int64) error {
	img, err := elfscan.Load(p.filename, elfscan.Options{
		Segments: p.hostSegments,
		ScanGcda: p.gcov,
		OnCoverageData: func(gcda string) {
			p.emitFile(File{Path: gcda, Flags: FlagCoverageData})
		},
		Logger: p.logger,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("file", p.filename).Msg("Cannot rescan file")
		return err
	}
	p.replaceImage(img)
	p.state = StateLinesExtracted

	if p.gcov && len(img.GcnoFiles) > 0 {
		p.parseGraphs(img.GcnoFiles, relocation)
		return nil
	}

	p.parseDWARF(img, relocation)
	return nil
}

func (p *Parser) parseDWARF(img *elfscan.Image, relocation int64) {
	dw, err := img.DWARF()
	if err != nil {
		p.logger.Debug().Err(err).Str("file", img.Filename).Msg("No inline debug info")

		dbg, lerr := p.locator.Locate(img, p.main)
		if lerr != nil {
			if p.main {
				p.logger.Warn().Str("file", img.Filename).
					Msg("covmap requires binaries built with -g/-ggdb or a build-id file")
			}
			p.logger.Debug().Err(lerr).Str("file", img.Filename).Msg("No debug symbols")
			return
		}
		defer errors.DeferClose(p.logger, dbg, "failed to close debug file")
		dw = dbg.DWARF
	}

	var verifier verify.Verifier
	if p.verifyAddresses {
		verifier = verify.ForMachine(img.Machine)
	}

	extractor := &lines.Extractor{
		ExecSegments: img.ExecSegments,
		CurSegments:  img.CurSegments,
		Verifier:     verifier,
		Paths:        p.paths,
		Listeners:    p.lineListeners,
		Logger:       p.logger,
	}
	if _, err := extractor.Extract(dw, relocation); err != nil {
		p.logger.Warn().Err(err).Str("file", img.Filename).Msg("Line table walk stopped early")
	}
}

func (p *Parser) parseGraphs(files []string, relocation int64) {
	for _, path := range files {
		data, err := safe.ReadFile(path, p.maxGcnoSize)
		if err != nil {
			p.logger.Warn().Err(err).Str("gcno", path).Msg("Can't read graph file")
			continue
		}

		graph, err := gcov.Parse(data)
		if err != nil {
			p.logger.Warn().Err(err).Str("gcno", path).Msg("Can't parse graph file")
			continue
		}

		for _, bb := range graph.Blocks {
			addr := safe.AddOffset(gcov.Address(bb.File, bb.Function, bb.Block, bb.Index), relocation)
			for _, l := range p.lineListeners {
				l.OnLine(bb.File, bb.Line, addr)
			}
		}
	}
}

func (p *Parser) emitFile(f File) {
	for _, l := range p.fileListeners {
		l.OnFile(f)
	}
}
