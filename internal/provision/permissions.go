package provision

import (
	"context"
	"fmt"
	"log/slog"
	"os/user"

	"github.com/driftbox/driftboxctl/internal/execx"
)

// Access grants the service user membership in the container runtime's group
// so day-two operations do not require elevation.
type Access struct {
	runner execx.Runner
	logger *slog.Logger

	// lookupUser resolves an OS account; replaced in tests.
	lookupUser func(username string) (*user.User, error)
}

// NewAccess constructs the permission manager.
func NewAccess(runner execx.Runner, logger *slog.Logger) *Access {
	return &Access{
		runner:     runner,
		logger:     logger,
		lookupUser: user.Lookup,
	}
}

// Ensure adds username to the docker group, creating the group if the package
// did not. Both commands are idempotent, so re-runs are free. The group
// change takes effect on the user's next login session.
func (a *Access) Ensure(ctx context.Context, username string) error {
	if _, err := a.lookupUser(username); err != nil {
		return fmt.Errorf("service user %q does not exist: %w", username, err)
	}

	if res := a.runner.Run(ctx, execx.Cmd{Name: "groupadd", Args: []string{"-f", "docker"}}); !res.Ok() {
		return fmt.Errorf("ensure docker group: %w", res.Failure())
	}

	if username == "root" {
		a.logger.Debug("service user is root, skipping group membership")
		return nil
	}

	if res := a.runner.Run(ctx, execx.Cmd{Name: "usermod", Args: []string{"-aG", "docker", username}}); !res.Ok() {
		return fmt.Errorf("add %s to docker group: %w", username, res.Failure())
	}

	a.logger.Info("granted container runtime access", "user", username, "group", "docker")
	return nil
}
