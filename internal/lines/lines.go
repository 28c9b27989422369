// Package lines walks DWARF line tables and reports validated, relocated
// (file, line, address) rows.
package lines

import (
	"debug/dwarf"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/covmap/internal/errors"
	"github.com/coral-mesh/covmap/internal/safe"
	"github.com/coral-mesh/covmap/internal/segment"
	"github.com/coral-mesh/covmap/internal/verify"
)

// Listener receives one call per accepted line-table row.
type Listener interface {
	OnLine(file string, line uint32, addr uint64)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(file string, line uint32, addr uint64)

// OnLine calls f.
func (f ListenerFunc) OnLine(file string, line uint32, addr uint64) {
	f(file, line, addr)
}

// Stats counts what one Extract call did.
type Stats struct {
	Units        int
	SkippedUnits int
	Emitted      int
	Rejected     int
}

// Extractor emits the line rows of one image.
type Extractor struct {
	// ExecSegments bound which addresses are accepted.
	ExecSegments segment.List
	// CurSegments translate accepted addresses.
	CurSegments segment.List
	// Verifier, when set, rejects addresses off an instruction boundary.
	Verifier  verify.Verifier
	Paths     *PathResolver
	Listeners []Listener
	Logger    zerolog.Logger
}

// Extract walks every compile unit of dw. Rows that begin a statement, carry
// a line number and lie inside an executable segment are translated, shifted
// by relocation and sent to every listener in table order. A unit whose line
// table cannot be decoded is skipped.
func (e *Extractor) Extract(dw *dwarf.Data, relocation int64) (Stats, error) {
	var stats Stats

	if e.Paths == nil {
		paths, err := NewPathResolver("", "", 0)
		if err != nil {
			return stats, err
		}
		e.Paths = paths
	}

	r := dw.Reader()
	for {
		ent, err := r.Next()
		if err != nil {
			return stats, fmt.Errorf("%w: %w", errors.ErrUnitParse, err)
		}
		if ent == nil {
			break
		}
		if ent.Tag != dwarf.TagCompileUnit {
			r.SkipChildren()
			continue
		}
		r.SkipChildren()

		stats.Units++
		if err := e.extractUnit(dw, ent, relocation, &stats); err != nil {
			stats.SkippedUnits++
			e.Logger.Warn().Err(err).Str("unit", unitName(ent)).Msg("Skipping compile unit")
		}
	}

	e.Logger.Debug().
		Int("units", stats.Units).
		Int("skipped_units", stats.SkippedUnits).
		Int("emitted", stats.Emitted).
		Int("rejected", stats.Rejected).
		Msg("Extracted line table")

	return stats, nil
}

func (e *Extractor) extractUnit(dw *dwarf.Data, cu *dwarf.Entry, relocation int64, stats *Stats) error {
	lr, err := dw.LineReader(cu)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrUnitParse, err)
	}
	if lr == nil {
		return nil
	}

	compDir, _ := cu.Val(dwarf.AttrCompDir).(string)

	var row dwarf.LineEntry
	for {
		if err := lr.Next(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("%w: %w", errors.ErrUnitParse, err)
		}

		if !row.IsStmt || row.Line <= 0 || row.EndSequence || row.File == nil {
			continue
		}

		if !e.accept(row.Address) {
			stats.Rejected++
			continue
		}

		file := e.Paths.Resolve(compDir, row.File.Name)
		addr := safe.AddOffset(e.CurSegments.Translate(row.Address), relocation)
		line := uint32(row.Line) // #nosec G115 -- checked positive above

		for _, l := range e.Listeners {
			l.OnLine(file, line, addr)
		}
		stats.Emitted++
	}
}

func (e *Extractor) accept(addr uint64) bool {
	seg, ok := e.ExecSegments.Find(addr)
	if !ok {
		e.Logger.Trace().Msgf("Address %#x is outside the executable segments", addr)
		return false
	}

	if e.Verifier != nil && !e.Verifier.Verify(seg.Data(), addr-seg.Base()) {
		e.Logger.Debug().Msgf("Address %#x is not at an instruction boundary, skipping", addr)
		return false
	}

	return true
}

func unitName(cu *dwarf.Entry) string {
	name, _ := cu.Val(dwarf.AttrName).(string)
	return name
}
