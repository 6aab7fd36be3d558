package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/driftbox/driftboxctl/internal/config"
	"github.com/driftbox/driftboxctl/internal/execx"
	"github.com/driftbox/driftboxctl/internal/health"
	"github.com/driftbox/driftboxctl/internal/orchestrate"
	"github.com/driftbox/driftboxctl/internal/platform"
	"github.com/driftbox/driftboxctl/internal/provision"
	"github.com/driftbox/driftboxctl/internal/stack"
)

// installDeps carries the pipeline's host-facing edges so the pipeline can be
// driven against fakes.
type installDeps struct {
	runner        execx.Runner
	osReleasePath string
	sources       []config.Source
}

// newInstallCommand constructs the install command running the full pipeline:
// resolve, preflight, detect, provision, render, orchestrate, verify.
func newInstallCommand(_ *Options) *cobra.Command {
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Provision the Driftbox stack on this host",
		Long: "install runs the full provisioning pipeline. It is idempotent: re-running it\n" +
			"against a healthy host converges the stack to the resolved configuration and\n" +
			"never touches data directories.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context()).With("run_id", uuid.NewString())

			flagValues := map[string]string{}
			for _, field := range config.Fields() {
				if cmd.Flags().Changed(field.Key) {
					value, err := cmd.Flags().GetString(field.Key)
					if err != nil {
						return err
					}
					flagValues[field.Key] = value
				}
			}

			envSource, err := config.NewEnvSource(nil)
			if err != nil {
				return err
			}

			sources := []config.Source{
				config.ValuesSource{Label: "flags", Values: flagValues},
				envSource,
			}
			if !nonInteractive {
				sources = append(sources, config.PromptSource{})
			}

			cfg, err := runInstall(cmd.Context(), logger, installDeps{
				runner:        execx.NewRunner(logger),
				osReleasePath: platform.OSReleasePath,
				sources:       sources,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Driftbox is provisioned at https://%s\n", cfg.Domain)
			return nil
		},
	}

	for _, field := range config.Fields() {
		cmd.Flags().String(field.Key, "", field.Prompt)
	}
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Fail on missing required values instead of prompting")

	return cmd
}

// runInstall executes the pipeline stages strictly in order. Resolution runs
// first so a missing required value fails before platform detection and
// before any command or filesystem effect.
func runInstall(ctx context.Context, logger *slog.Logger, deps installDeps) (*config.Config, error) {
	cfg, err := config.Resolve(deps.sources...)
	if err != nil {
		return nil, err
	}

	if err := provision.Preflight(deps.runner); err != nil {
		return nil, err
	}

	profile, err := platform.Detect(deps.osReleasePath)
	if err != nil {
		return nil, err
	}
	logger.Info("platform detected", "platform", profile.Name)

	if err := provision.NewPrerequisites(deps.runner, logger, profile).Ensure(ctx); err != nil {
		return nil, err
	}
	if err := provision.NewAccess(deps.runner, logger).Ensure(ctx, cfg.ServiceUser); err != nil {
		return nil, err
	}

	if err := stack.NewWriter(deps.runner, logger, cfg).WriteAll(ctx); err != nil {
		return nil, err
	}

	if err := orchestrate.New(deps.runner, logger, cfg.InstallDir).Up(ctx); err != nil {
		return nil, err
	}

	probes := health.DefaultProbes()
	verified, err := health.NewChecker(logger).Verify(ctx, probes)
	if err != nil {
		return nil, err
	}
	if verified < len(probes) {
		// Unverified health is reported, never fatal: the stack may still be
		// running first-boot migrations.
		logger.Warn("install finished with unverified endpoints",
			"verified", verified, "total", len(probes))
	} else {
		logger.Info("install complete", "domain", cfg.Domain, "install_dir", cfg.InstallDir)
	}

	return cfg, nil
}
