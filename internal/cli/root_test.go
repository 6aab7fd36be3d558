package cli

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecuteHelp(t *testing.T) {
	assert.NoError(t, Execute([]string{"--help"}, testLogger()))
}

func TestExecuteUnknownCommand(t *testing.T) {
	err := Execute([]string{"no-such-command"}, testLogger())
	assert.Error(t, err)
}

func TestExecuteRejectsUnknownLogLevel(t *testing.T) {
	err := Execute([]string{"--log-level", "bogus"}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCommand(&Options{}, testLogger())

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "install")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "uninstall")
}

func TestInstallCommandRegistersConfigFlags(t *testing.T) {
	cmd := newInstallCommand(&Options{})

	for _, name := range []string{"domain", "encryption-key", "db-password", "install-dir", "service-user", "non-interactive"} {
		require.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}
}

func TestLoggerFromContextFallsBack(t *testing.T) {
	assert.NotNil(t, LoggerFromContext(nil))
	assert.NotNil(t, LoggerFromContext(context.Background()))
}

func TestLoggerFromContextReturnsStoredLogger(t *testing.T) {
	logger := testLogger()
	ctx := context.WithValue(context.Background(), loggerKey{}, logger)
	assert.Same(t, logger, LoggerFromContext(ctx))
}
