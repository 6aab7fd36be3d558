package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelSet(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		" error ": LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
	}
	for value, want := range cases {
		var l Level
		assert.NoError(t, l.Set(value), "value %q", value)
		assert.Equal(t, want, l, "value %q", value)
	}
}

func TestLevelSetRejectsUnknownValue(t *testing.T) {
	var l Level
	err := l.Set("bogus")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log level "bogus"`)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "info", Level(0).String())
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelWarn)

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestCommandWriterSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := NewCommandWriter(logger, "apt-get update")

	n, err := w.Write([]byte("first\nsecond\n\n"))
	assert.NoError(t, err)
	assert.Equal(t, 14, n)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "command output"))
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "second")
}
