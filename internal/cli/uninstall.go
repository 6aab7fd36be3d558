package cli

import (
	"github.com/spf13/cobra"

	"github.com/driftbox/driftboxctl/internal/config"
	"github.com/driftbox/driftboxctl/internal/execx"
	"github.com/driftbox/driftboxctl/internal/orchestrate"
	"github.com/driftbox/driftboxctl/internal/provision"
)

// newUninstallCommand constructs the uninstall command. Data directories
// survive unless the operator passes --purge-data explicitly.
func newUninstallCommand(_ *Options) *cobra.Command {
	var (
		installDir string
		purgeData  bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Stop the stack and remove boot persistence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := LoggerFromContext(ctx)

			runner := execx.NewRunner(logger)
			if err := provision.Preflight(runner); err != nil {
				return err
			}

			return orchestrate.New(runner, logger, installDir).Teardown(ctx, purgeData)
		},
	}

	cmd.Flags().StringVar(&installDir, "install-dir", config.DefaultInstallDir, "Installation directory")
	cmd.Flags().BoolVar(&purgeData, "purge-data", false, "Also destroy the data directories")

	return cmd
}
