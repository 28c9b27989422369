package testutil

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a logger that discards output. Every level is enabled
// so log-building code still runs.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(io.Discard).Level(zerolog.TraceLevel)
}

// LogCapture records JSON log lines for assertions on warnings.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogCapture returns a capture and a logger writing into it at level.
func NewLogCapture(level zerolog.Level) (*LogCapture, zerolog.Logger) {
	c := &LogCapture{}
	return c, zerolog.New(c).Level(level)
}

func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// String returns everything logged so far.
func (c *LogCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Contains reports whether any log line contains s.
func (c *LogCapture) Contains(s string) bool {
	return strings.Contains(c.String(), s)
}
