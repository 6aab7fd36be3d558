// Package logging builds the structured, colorized loggers used across driftboxctl.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Level is the minimum severity a logger emits. The zero value is info, and
// it implements pflag.Value so commands bind it straight to --log-level.
type Level slog.Level

const (
	// LevelDebug enables verbose diagnostics, including every external command.
	LevelDebug Level = Level(slog.LevelDebug)
	// LevelInfo is the default level for normal runs.
	LevelInfo Level = Level(slog.LevelInfo)
	// LevelWarn reports only degraded and fatal conditions.
	LevelWarn Level = Level(slog.LevelWarn)
	// LevelError reports only fatal conditions.
	LevelError Level = Level(slog.LevelError)
)

// Set implements pflag.Value.
func (l *Level) Set(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		*l = LevelDebug
	case "info", "":
		*l = LevelInfo
	case "warn", "warning":
		*l = LevelWarn
	case "error":
		*l = LevelError
	default:
		return fmt.Errorf("unknown log level %q (debug, info, warn, error)", value)
	}
	return nil
}

// String implements pflag.Value.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Type implements pflag.Value.
func (Level) Type() string { return "level" }

// NewLogger constructs a slog.Logger with a tint handler at the given level.
func NewLogger(w io.Writer, level Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      slog.Level(level),
		TimeFormat: time.TimeOnly,
	})

	return slog.New(handler)
}
