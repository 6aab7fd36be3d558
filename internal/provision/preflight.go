package provision

import (
	"fmt"
	"os"

	"github.com/driftbox/driftboxctl/internal/execx"
)

// Preflight verifies the invariants every mutating command depends on: the
// process runs as root and systemd manages the host. It runs before any
// change is made, so a failure leaves the host untouched.
func Preflight(runner execx.Runner) error {
	if euid := os.Geteuid(); euid != 0 {
		return fmt.Errorf("must run as root (effective uid %d): re-run with sudo", euid)
	}
	if _, err := runner.LookPath("systemctl"); err != nil {
		return fmt.Errorf("systemctl not found: %w (a systemd host is required)", err)
	}
	return nil
}
