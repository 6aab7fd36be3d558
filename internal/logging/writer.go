package logging

import (
	"log/slog"
	"strings"
)

// CommandWriter forwards external command output to slog, one line per record,
// tagged with the command that produced it.
type CommandWriter struct {
	logger  *slog.Logger
	command string
}

// NewCommandWriter constructs a CommandWriter bound to the provided logger.
func NewCommandWriter(logger *slog.Logger, command string) *CommandWriter {
	return &CommandWriter{logger: logger, command: command}
}

// Write logs the given bytes at debug level, splitting on newlines.
func (w *CommandWriter) Write(p []byte) (int, error) {
	if w.logger != nil {
		for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
			if line != "" {
				w.logger.Debug("command output", "command", w.command, "line", line)
			}
		}
	}
	return len(p), nil
}
