// Package logger builds the zerolog loggers the stockledger binaries
// share. Use cases stay log-free; logging happens in cmd/ and the
// conflict retrier.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the output level and format.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json (default), console
}

// New returns a logger writing JSON lines to stdout. Format "console"
// switches to human-readable output for local runs. Unknown levels fall
// back to info.
func New(cfg Config) zerolog.Logger {
	var out io.Writer = os.Stdout

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Caller().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
