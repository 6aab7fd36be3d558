// Package provision idempotently ensures the host prerequisites: the
// container runtime and the reverse-proxy daemon, plus the group membership
// that lets the service user drive the runtime without elevation.
package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/driftbox/driftboxctl/internal/execx"
	"github.com/driftbox/driftboxctl/internal/platform"
)

const (
	// startTimeout bounds a single service start attempt. A start failure is
	// a warning, not an error: the health-check stage is the readiness gate.
	startTimeout = 90 * time.Second

	aptTimeout = 10 * time.Minute
)

// prerequisite binds a probed program to the unit and packages that provide it.
type prerequisite struct {
	name     string
	program  string
	unit     string
	repo     platform.AptRepo
	packages []string
}

// Prerequisites installs and enables the container runtime and reverse proxy.
type Prerequisites struct {
	runner  execx.Runner
	logger  *slog.Logger
	profile platform.Profile

	// fetchKey downloads a repository signing key; replaced in tests.
	fetchKey func(ctx context.Context, url string) ([]byte, error)
}

// NewPrerequisites constructs the provisioner for the detected platform.
func NewPrerequisites(runner execx.Runner, logger *slog.Logger, profile platform.Profile) *Prerequisites {
	return &Prerequisites{
		runner:   runner,
		logger:   logger,
		profile:  profile,
		fetchKey: fetchKeyHTTP,
	}
}

// Ensure checks each prerequisite program on PATH. Present programs skip
// installation entirely and are only re-enabled for boot persistence; absent
// ones are installed from the profile's signed repository. Running Ensure
// twice against a satisfied host performs no installation work the second time.
func (p *Prerequisites) Ensure(ctx context.Context) error {
	prereqs := []prerequisite{
		{
			name:     "container runtime",
			program:  "docker",
			unit:     "docker",
			repo:     p.profile.DockerRepo,
			packages: p.profile.DockerPackages,
		},
		{
			name:     "reverse proxy",
			program:  "caddy",
			unit:     "caddy",
			repo:     p.profile.CaddyRepo,
			packages: p.profile.CaddyPackages,
		},
	}

	for _, pre := range prereqs {
		if err := p.ensureOne(ctx, pre); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prerequisites) ensureOne(ctx context.Context, pre prerequisite) error {
	if path, err := p.runner.LookPath(pre.program); err == nil {
		p.logger.Info("prerequisite already installed, skipping installation",
			"name", pre.name, "program", pre.program, "path", path)
	} else {
		p.logger.Info("installing prerequisite", "name", pre.name, "platform", p.profile.Name)
		if err := p.install(ctx, pre); err != nil {
			return fmt.Errorf("install %s: %w", pre.name, err)
		}
	}

	if res := p.runner.Run(ctx, execx.Cmd{Name: "systemctl", Args: []string{"enable", pre.unit}}); !res.Ok() {
		return fmt.Errorf("enable %s: %w", pre.unit, res.Failure())
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if res := p.runner.Run(startCtx, execx.Cmd{Name: "systemctl", Args: []string{"start", pre.unit}}); !res.Ok() {
		// Degraded, not fatal: the health checker decides readiness later.
		p.logger.Warn("prerequisite failed to start; continuing",
			"unit", pre.unit, "error", res.Failure())
	}

	return nil
}

func (p *Prerequisites) install(ctx context.Context, pre prerequisite) error {
	if err := p.addSignedRepo(ctx, pre.repo); err != nil {
		return err
	}

	aptCtx, cancel := context.WithTimeout(ctx, aptTimeout)
	defer cancel()

	env := map[string]string{"DEBIAN_FRONTEND": "noninteractive"}

	if res := p.runner.Run(aptCtx, execx.Cmd{Name: "apt-get", Args: []string{"update"}, Env: env}); !res.Ok() {
		return fmt.Errorf("refresh package index: %w", res.Failure())
	}

	args := append([]string{"install", "-y"}, pre.packages...)
	if res := p.runner.Run(aptCtx, execx.Cmd{Name: "apt-get", Args: args, Env: env}); !res.Ok() {
		return fmt.Errorf("install packages: %w", res.Failure())
	}

	return nil
}

func (p *Prerequisites) addSignedRepo(ctx context.Context, repo platform.AptRepo) error {
	key, err := p.fetchKey(ctx, repo.KeyURL)
	if err != nil {
		return fmt.Errorf("fetch signing key %s: %w", repo.KeyURL, err)
	}

	if err := os.MkdirAll(filepath.Dir(repo.KeyringPath), 0o755); err != nil {
		return fmt.Errorf("create keyring directory: %w", err)
	}
	if err := os.WriteFile(repo.KeyringPath, key, 0o644); err != nil {
		return fmt.Errorf("write keyring %s: %w", repo.KeyringPath, err)
	}
	if err := os.WriteFile(repo.SourcePath, []byte(repo.SourceLine+"\n"), 0o644); err != nil {
		return fmt.Errorf("write apt source %s: %w", repo.SourcePath, err)
	}

	return nil
}

func fetchKeyHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
