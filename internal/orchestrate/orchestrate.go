// Package orchestrate drives the container stack lifecycle and pins it to
// boot through a systemd unit. Startup ordering between the services is owned
// by the stack definition's dependency edge, not by this package.
package orchestrate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/coreos/go-systemd/v22/unit"

	"github.com/driftbox/driftboxctl/internal/execx"
	"github.com/driftbox/driftboxctl/internal/stack"
)

const (
	// UnitName is the boot-persistence unit.
	UnitName = "driftbox.service"

	// DefaultUnitPath is where the unit file is installed.
	DefaultUnitPath = "/etc/systemd/system/" + UnitName

	composeTimeout = 5 * time.Minute
)

// Orchestrator starts and stops the stack in one installation root.
type Orchestrator struct {
	runner     execx.Runner
	logger     *slog.Logger
	installDir string

	// UnitPath is overridable for tests; defaults to the systemd system path.
	UnitPath string
}

// New constructs the orchestrator for an installation root.
func New(runner execx.Runner, logger *slog.Logger, installDir string) *Orchestrator {
	return &Orchestrator{
		runner:     runner,
		logger:     logger,
		installDir: installDir,
		UnitPath:   DefaultUnitPath,
	}
}

// Up tears down any previous stack, starts the new one, and installs the boot
// unit. The engine starts the data store before the app because the stack
// definition marks the dependency as service_healthy.
func (o *Orchestrator) Up(ctx context.Context) error {
	o.teardownPrevious(ctx)

	upCtx, cancel := context.WithTimeout(ctx, composeTimeout)
	defer cancel()
	if res := o.compose(upCtx, "up", "-d"); !res.Ok() {
		return fmt.Errorf("start stack: %w", res.Failure())
	}
	o.logger.Info("stack started", "project", stack.ProjectName)

	if err := o.installUnit(ctx); err != nil {
		return err
	}
	return nil
}

// Teardown stops the stack and removes boot persistence. With purgeData the
// data directories are destroyed as well; without it they survive for the
// next install.
func (o *Orchestrator) Teardown(ctx context.Context, purgeData bool) error {
	if res := o.runner.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"disable", "--now", UnitName}}); !res.Ok() {
		o.logger.Warn("disable boot unit failed; continuing", "error", res.Failure())
	}

	downCtx, cancel := context.WithTimeout(ctx, composeTimeout)
	defer cancel()
	if res := o.compose(downCtx, "down"); !res.Ok() {
		o.logger.Warn("stack teardown reported failure; continuing", "error", res.Failure())
	}

	if err := os.Remove(o.UnitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit file: %w", err)
	}
	if res := o.runner.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"daemon-reload"}}); !res.Ok() {
		o.logger.Warn("daemon-reload failed", "error", res.Failure())
	}

	if purgeData {
		dataDir := filepath.Join(o.installDir, "data")
		o.logger.Info("purging data directories", "path", dataDir)
		if err := os.RemoveAll(dataDir); err != nil {
			return fmt.Errorf("purge data: %w", err)
		}
	}

	return nil
}

// Status returns the engine's view of the stack's services.
func (o *Orchestrator) Status(ctx context.Context) (string, error) {
	res := o.compose(ctx, "ps")
	if !res.Ok() {
		return "", fmt.Errorf("list services: %w", res.Failure())
	}
	return res.Stdout, nil
}

// teardownPrevious stops a stack left by an earlier run. A nonexistent prior
// stack is the common case, so failures are swallowed.
func (o *Orchestrator) teardownPrevious(ctx context.Context) {
	if _, err := os.Stat(filepath.Join(o.installDir, stack.ComposeFileName)); err != nil {
		return
	}

	o.logger.Debug("stopping previous stack", "project", stack.ProjectName)
	downCtx, cancel := context.WithTimeout(ctx, composeTimeout)
	defer cancel()
	o.compose(downCtx, "down")
}

func (o *Orchestrator) compose(ctx context.Context, args ...string) execx.Result {
	full := append([]string{"compose", "-p", stack.ProjectName}, args...)
	return o.runner.Run(ctx, execx.Cmd{Name: "docker", Args: full, Dir: o.installDir})
}

// installUnit writes the oneshot boot unit and enables it. The unit replays
// the same compose commands, so boot and CLI converge on one code path.
func (o *Orchestrator) installUnit(ctx context.Context) error {
	dockerPath, err := o.runner.LookPath("docker")
	if err != nil {
		return fmt.Errorf("locate docker for unit file: %w", err)
	}

	compose := fmt.Sprintf("%s compose -p %s", dockerPath, stack.ProjectName)
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Driftbox container stack"),
		unit.NewUnitOption("Unit", "Requires", "docker.service"),
		unit.NewUnitOption("Unit", "After", "docker.service network-online.target"),
		unit.NewUnitOption("Service", "Type", "oneshot"),
		unit.NewUnitOption("Service", "RemainAfterExit", "yes"),
		unit.NewUnitOption("Service", "WorkingDirectory", o.installDir),
		unit.NewUnitOption("Service", "ExecStart", compose+" up -d"),
		unit.NewUnitOption("Service", "ExecStop", compose+" down"),
		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}

	data, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		return fmt.Errorf("serialize unit: %w", err)
	}
	if err := os.WriteFile(o.UnitPath, data, 0o644); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	if res := o.runner.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"daemon-reload"}}); !res.Ok() {
		return fmt.Errorf("daemon-reload: %w", res.Failure())
	}
	if res := o.runner.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"enable", "--now", UnitName}}); !res.Ok() {
		return fmt.Errorf("enable %s: %w", UnitName, res.Failure())
	}

	o.logger.Info("boot unit installed", "unit", UnitName, "path", o.UnitPath)
	return nil
}
