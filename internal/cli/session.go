package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/covmap/internal/config"
	"github.com/coral-mesh/covmap/internal/errors"
	"github.com/coral-mesh/covmap/internal/parser"
	"github.com/coral-mesh/covmap/internal/procmaps"
	"github.com/coral-mesh/covmap/internal/registry"
	"github.com/coral-mesh/covmap/internal/segment"
)

// mapRequest describes one mapping run: a main binary, its shared objects,
// and where the load bias comes from.
type mapRequest struct {
	binary   string
	solibs   []string
	pid      int
	bias     string
	includes []string
}

type lineRow struct {
	File    string `header:"FILE" json:"file"`
	Line    uint32 `header:"LINE" json:"line"`
	Address uint64 `header:"ADDRESS" json:"address" fmt:"hex"`
}

type fileRow struct {
	Path     string `header:"PATH" json:"path"`
	Kind     string `header:"KIND" json:"kind"`
	Segments int    `header:"SEGMENTS" json:"segments"`
}

// prefixFilter keeps source files under any of its prefixes. An empty filter
// keeps everything.
type prefixFilter []string

func (f prefixFilter) RunFilters(file string) bool {
	if len(f) == 0 {
		return true
	}
	for _, prefix := range f {
		if strings.HasPrefix(file, prefix) {
			return true
		}
	}
	return false
}

// collector records parser events as output rows.
type collector struct {
	filter parser.Filter
	lines  []lineRow
	files  []fileRow
}

func (c *collector) OnLine(file string, line uint32, addr uint64) {
	if c.filter != nil && !c.filter.RunFilters(file) {
		return
	}
	c.lines = append(c.lines, lineRow{File: file, Line: line, Address: addr})
}

func (c *collector) OnFile(f parser.File) {
	c.files = append(c.files, fileRow{Path: f.Path, Kind: f.Flags.String(), Segments: len(f.Segments)})
}

// parseBias accepts decimal or 0x-prefixed values.
func parseBias(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	bias, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bias %q: %w", s, err)
	}
	return bias, nil
}

// run maps the request and returns the collected rows. With a pid the main
// binary, its bias and the shared object segments come from the live process.
func run(cfg *config.Config, req mapRequest, logger zerolog.Logger) (*collector, error) {
	bias, err := parseBias(req.bias)
	if err != nil {
		return nil, err
	}

	var maps []procmaps.Mapping
	if req.pid != 0 {
		if req.binary == "" {
			if req.binary, err = procmaps.Executable(req.pid); err != nil {
				return nil, err
			}
		}
		if maps, err = procmaps.Read(req.pid); err != nil {
			return nil, err
		}
		if req.bias == "" {
			if bias, err = procmaps.Bias(req.binary, maps); err != nil {
				return nil, err
			}
		}
	}
	if req.binary == "" {
		return nil, fmt.Errorf("a binary or --pid is required")
	}

	elfParser, err := parser.New(parser.Options{Config: cfg, Logger: logger})
	if err != nil {
		return nil, err
	}

	manager := registry.NewManager(logger)
	manager.Register(elfParser)

	p, err := manager.Match(req.binary)
	if err != nil {
		return nil, err
	}
	defer errors.DeferClose(logger, p, "failed to close parser")

	out := &collector{filter: prefixFilter(req.includes)}
	p.Setup(out.filter)
	p.RegisterLineListener(out)
	p.RegisterFileListener(out)

	if err := p.Register(req.binary, nil); err != nil {
		return nil, err
	}
	if err := p.Parse(); err != nil {
		return nil, err
	}
	if err := p.FinalizeMainRelocation(bias); err != nil {
		return nil, err
	}

	for _, lib := range req.solibs {
		var segments segment.List
		if maps != nil {
			if segments, err = procmaps.Segments(lib, maps); err != nil {
				logger.Warn().Err(err).Str("file", lib).Msg("Shared object is not mapped, using link-time addresses")
				segments = nil
			}
		}
		if _, err := manager.Match(lib); err != nil {
			logger.Warn().Err(err).Str("file", lib).Msg("Skipping shared object")
			continue
		}
		if err := p.Register(lib, segments); err != nil {
			logger.Warn().Err(err).Str("file", lib).Msg("Skipping shared object")
			continue
		}
		if err := p.Parse(); err != nil {
			logger.Warn().Err(err).Str("file", lib).Msg("Failed to parse shared object")
		}
	}

	return out, nil
}

