// Package health verifies stack endpoints after startup. Probes report, they
// never gate: an unverified endpoint is a warning for the operator, not a
// provisioning failure, because slow first-boot migrations are expected.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/driftbox/driftboxctl/internal/stack"
)

const (
	// DefaultAttempts and DefaultDelay bound a probe to 30 attempts over
	// roughly a minute.
	DefaultAttempts = 30
	DefaultDelay    = 2 * time.Second

	requestTimeout = 5 * time.Second
)

// Probe is one endpoint to verify.
type Probe struct {
	// Label names the probe in logs.
	Label string
	// URL is fetched with GET; any 2xx status is success.
	URL string
	// Attempts is the maximum number of tries.
	Attempts int
	// Delay is the pause between consecutive tries.
	Delay time.Duration
}

// DefaultProbes covers the app's liveness endpoint and the data-store status
// it reports.
func DefaultProbes() []Probe {
	base := fmt.Sprintf("http://127.0.0.1:%d", stack.AppPort)
	return []Probe{
		{Label: "application", URL: base + "/health", Attempts: DefaultAttempts, Delay: DefaultDelay},
		{Label: "database", URL: base + "/health/db", Attempts: DefaultAttempts, Delay: DefaultDelay},
	}
}

// Checker runs probes sequentially with a shared HTTP client.
type Checker struct {
	logger *slog.Logger
	client *http.Client
}

// NewChecker constructs the checker.
func NewChecker(logger *slog.Logger) *Checker {
	return &Checker{
		logger: logger,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Verify runs every probe in order and returns how many verified. It returns
// an error only when the context is cancelled; exhausted probes are warnings.
func (c *Checker) Verify(ctx context.Context, probes []Probe) (int, error) {
	verified := 0
	for _, probe := range probes {
		ok, err := c.verifyOne(ctx, probe)
		if err != nil {
			return verified, err
		}
		if ok {
			verified++
		}
	}
	return verified, nil
}

func (c *Checker) verifyOne(ctx context.Context, probe Probe) (bool, error) {
	for attempt := 1; attempt <= probe.Attempts; attempt++ {
		if c.fetch(ctx, probe.URL) {
			c.logger.Info("endpoint healthy", "probe", probe.Label, "attempt", attempt)
			return true, nil
		}

		if attempt < probe.Attempts {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(probe.Delay):
			}
		}
	}

	c.logger.Warn("endpoint unverified after all attempts",
		"probe", probe.Label, "url", probe.URL, "attempts", probe.Attempts)
	return false, nil
}

func (c *Checker) fetch(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
