// Package errors provides the error taxonomy and cleanup helpers shared by the
// covmap packages.
package errors

import (
	"io"

	"github.com/rs/zerolog"
)

// CloseFunc adapts a release function, such as an munmap, to io.Closer.
type CloseFunc func() error

// Close calls f. A nil CloseFunc does nothing.
func (f CloseFunc) Close() error {
	if f == nil {
		return nil
	}
	return f()
}

// DeferClose closes closer and logs a failure at warn level.
// Use this in defer statements to avoid suppressing close errors.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// DeferRelease is DeferClose for a bare release function.
func DeferRelease(logger zerolog.Logger, release func() error, msg string) {
	DeferClose(logger, CloseFunc(release), msg)
}
