// Package registry dispatches files to the parser that recognizes their
// header.
package registry

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/covmap/internal/errors"
	"github.com/coral-mesh/covmap/internal/parser"
)

// HeaderSize is how many leading bytes parsers get to match on.
const HeaderSize = 128

// ErrUnknownFormat is returned when no registered parser matches a file.
var ErrUnknownFormat = stderrors.New("could not identify file magic")

// Manager holds explicitly registered parsers.
type Manager struct {
	mu      sync.RWMutex
	parsers []parser.FileParser
	logger  zerolog.Logger
}

// NewManager creates an empty manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		logger: logger.With().Str("component", "registry").Logger(),
	}
}

// Register adds a parser. Earlier registrations win ties.
func (m *Manager) Register(p parser.FileParser) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parsers = append(m.parsers, p)
	m.logger.Debug().Str("parser", p.Name()).Msg("Registered parser")
}

// Parsers returns the registered parsers in registration order.
func (m *Manager) Parsers() []parser.FileParser {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]parser.FileParser(nil), m.parsers...)
}

// MatchHeader returns the best parser for header.
func (m *Manager) MatchHeader(filename string, header []byte) (parser.FileParser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		best    parser.FileParser
		quality = parser.MatchNone
	)
	for _, p := range m.parsers {
		if q := p.MatchParser(filename, header); q > quality {
			best, quality = p, q
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%s: %w", filename, ErrUnknownFormat)
	}
	return best, nil
}

// Match reads the header of filename and returns the best parser for it.
func (m *Manager) Match(filename string) (parser.FileParser, error) {
	header, err := readHeader(filename, m.logger)
	if err != nil {
		return nil, err
	}
	return m.MatchHeader(filename, header)
}

func readHeader(filename string, logger zerolog.Logger) ([]byte, error) {
	// #nosec G304 -- the host chooses which binaries to scan.
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrOpen, err)
	}
	defer errors.DeferClose(logger, f, "failed to close file")

	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", errors.ErrOpen, err)
	}
	return header[:n], nil
}
