// Package cli defines the command-line interface for driftboxctl.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftbox/driftboxctl/internal/logging"
)

// Options stores global CLI options shared between commands.
type Options struct {
	LogLevel logging.Level
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		LogLevel: logging.LevelInfo,
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driftboxctl",
		Short: "driftboxctl provisions and operates a self-hosted Driftbox stack",
		Long: "driftboxctl bootstraps the Driftbox stack on a fresh Linux host: it installs the\n" +
			"container runtime and the Caddy reverse proxy, renders the stack layout, starts the\n" +
			"services in dependency order, persists them across reboots, and verifies health.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger = logging.NewLogger(os.Stderr, opts.LogLevel)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", opts.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().Var(&opts.LogLevel, "log-level", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newInstallCommand(opts),
		newStatusCommand(opts),
		newUninstallCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
