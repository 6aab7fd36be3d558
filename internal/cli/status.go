package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftbox/driftboxctl/internal/config"
	"github.com/driftbox/driftboxctl/internal/execx"
	"github.com/driftbox/driftboxctl/internal/health"
	"github.com/driftbox/driftboxctl/internal/orchestrate"
)

// newStatusCommand constructs the read-only status command: the engine's
// service listing plus a single round of health probes.
func newStatusCommand(_ *Options) *cobra.Command {
	var installDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show stack services and endpoint health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := LoggerFromContext(ctx)

			runner := execx.NewRunner(logger)
			listing, err := orchestrate.New(runner, logger, installDir).Status(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), listing)

			probes := health.DefaultProbes()
			for i := range probes {
				probes[i].Attempts = 1
			}
			verified, err := health.NewChecker(logger).Verify(ctx, probes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "healthy endpoints: %d/%d\n", verified, len(probes))
			return nil
		},
	}

	cmd.Flags().StringVar(&installDir, "install-dir", config.DefaultInstallDir, "Installation directory")

	return cmd
}
