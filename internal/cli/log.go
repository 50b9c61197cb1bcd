package cli

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// newLogger returns the logger attached to every command's context. Without verbose it discards
// everything.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}
