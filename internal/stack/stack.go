// Package stack renders the runtime artifacts into the installation root: the
// container stack definition, the secrets env file, and the reverse-proxy
// configuration. Every write is atomic so a prior valid artifact is never
// replaced by a torn one, and data directories are created but never removed.
package stack

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/driftbox/driftboxctl/internal/config"
	"github.com/driftbox/driftboxctl/internal/execx"
)

const (
	// DefaultCaddyfilePath is where the caddy package reads its configuration.
	DefaultCaddyfilePath = "/etc/caddy/Caddyfile"

	// ComposeFileName is the stack definition file inside the install root.
	ComposeFileName = "compose.yaml"

	envFileName = ".env"
)

// dataDirs are created under the install root and survive every re-run.
// Uninstall removes them only behind an explicit purge flag.
var dataDirs = []string{
	filepath.Join("data", "uploads"),
	filepath.Join("data", "postgres"),
}

// Writer materializes the stack layout for one resolved configuration.
type Writer struct {
	runner execx.Runner
	logger *slog.Logger
	cfg    *config.Config

	// CaddyfilePath is overridable for tests; defaults to the packaged path.
	CaddyfilePath string
}

// NewWriter constructs the layout writer.
func NewWriter(runner execx.Runner, logger *slog.Logger, cfg *config.Config) *Writer {
	return &Writer{
		runner:        runner,
		logger:        logger,
		cfg:           cfg,
		CaddyfilePath: DefaultCaddyfilePath,
	}
}

// WriteAll renders every artifact and reloads the reverse proxy. Artifacts are
// regenerated from the resolved configuration on every run; data directories
// are only ever created.
func (w *Writer) WriteAll(ctx context.Context) error {
	if err := w.ensureDirs(); err != nil {
		return err
	}
	if err := w.writeCompose(); err != nil {
		return err
	}
	if err := w.writeEnvFile(); err != nil {
		return err
	}
	if err := w.writeCaddyfile(); err != nil {
		return err
	}
	w.reloadProxy(ctx)
	return nil
}

func (w *Writer) ensureDirs() error {
	for _, dir := range dataDirs {
		path := filepath.Join(w.cfg.InstallDir, dir)
		if err := os.MkdirAll(path, 0o750); err != nil {
			return fmt.Errorf("create data directory %s: %w", path, err)
		}
	}
	return nil
}

func (w *Writer) writeCompose() error {
	data, err := renderCompose(w.cfg)
	if err != nil {
		return fmt.Errorf("render stack definition: %w", err)
	}

	path := filepath.Join(w.cfg.InstallDir, ComposeFileName)
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write stack definition: %w", err)
	}
	w.logger.Debug("wrote stack definition", "path", path)
	return nil
}

func (w *Writer) writeEnvFile() error {
	data, err := renderEnvFile(w.cfg)
	if err != nil {
		return fmt.Errorf("render env file: %w", err)
	}

	path := filepath.Join(w.cfg.InstallDir, envFileName)
	// Secrets live here; owner-only.
	if err := writeFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	w.logger.Debug("wrote env file", "path", path)
	return nil
}

func (w *Writer) writeCaddyfile() error {
	data, err := renderCaddyfile(w.cfg)
	if err != nil {
		return fmt.Errorf("render Caddyfile: %w", err)
	}

	if err := writeFileAtomic(w.CaddyfilePath, data, 0o644); err != nil {
		return fmt.Errorf("write Caddyfile: %w", err)
	}
	w.logger.Debug("wrote Caddyfile", "path", w.CaddyfilePath, "domain", w.cfg.Domain)
	return nil
}

// reloadProxy applies the new Caddyfile. Reload keeps existing connections;
// when it fails a restart is attempted, and if that fails too the run
// continues with a warning because the health stage reports the end state.
func (w *Writer) reloadProxy(ctx context.Context) {
	if res := w.runner.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"reload", "caddy"}}); res.Ok() {
		return
	}

	w.logger.Warn("caddy reload failed, attempting restart")
	if res := w.runner.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"restart", "caddy"}}); !res.Ok() {
		w.logger.Warn("caddy restart failed; proxy may be serving a stale configuration",
			"error", res.Failure())
	}
}
