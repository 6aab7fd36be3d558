package orchestrate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbox/driftboxctl/internal/execx"
)

func testOrchestrator(t *testing.T, fake *execx.Fake) *Orchestrator {
	t.Helper()
	o := New(fake, slog.New(slog.NewTextHandler(io.Discard, nil)), t.TempDir())
	o.UnitPath = filepath.Join(t.TempDir(), "driftbox.service")
	return o
}

func dockerFake() *execx.Fake {
	return &execx.Fake{Programs: map[string]string{"docker": "/usr/bin/docker"}}
}

func TestUpStartsStackAndInstallsUnit(t *testing.T) {
	fake := dockerFake()
	o := testOrchestrator(t, fake)

	require.NoError(t, o.Up(context.Background()))

	lines := fake.CommandLines()
	assert.Contains(t, lines, "docker compose -p driftbox up -d")
	assert.Contains(t, lines, "systemctl daemon-reload")
	assert.Contains(t, lines, "systemctl enable --now driftbox.service")

	raw, err := os.ReadFile(o.UnitPath)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "Type=oneshot")
	assert.Contains(t, text, "RemainAfterExit=yes")
	assert.Contains(t, text, "ExecStart=/usr/bin/docker compose -p driftbox up -d")
	assert.Contains(t, text, "ExecStop=/usr/bin/docker compose -p driftbox down")
	assert.Contains(t, text, "WorkingDirectory="+o.installDir)
	assert.Contains(t, text, "WantedBy=multi-user.target")
}

func TestUpSkipsTeardownWithoutPreviousStack(t *testing.T) {
	fake := dockerFake()
	o := testOrchestrator(t, fake)

	require.NoError(t, o.Up(context.Background()))

	for _, line := range fake.CommandLines() {
		assert.NotEqual(t, "docker compose -p driftbox down", line)
	}
}

func TestUpTearsDownPreviousStack(t *testing.T) {
	fake := dockerFake()
	o := testOrchestrator(t, fake)
	require.NoError(t, os.WriteFile(filepath.Join(o.installDir, "compose.yaml"), []byte("services: {}\n"), 0o644))

	require.NoError(t, o.Up(context.Background()))

	lines := fake.CommandLines()
	assert.Contains(t, lines, "docker compose -p driftbox down")
	downIdx, upIdx := -1, -1
	for i, line := range lines {
		if line == "docker compose -p driftbox down" {
			downIdx = i
		}
		if line == "docker compose -p driftbox up -d" {
			upIdx = i
		}
	}
	assert.Less(t, downIdx, upIdx, "teardown must precede startup")
}

func TestUpIgnoresPreviousTeardownFailure(t *testing.T) {
	fake := dockerFake()
	fake.Results = map[string]execx.Result{
		"docker compose -p driftbox down": {ExitCode: 1, Stderr: "no such project"},
	}
	o := testOrchestrator(t, fake)
	require.NoError(t, os.WriteFile(filepath.Join(o.installDir, "compose.yaml"), []byte("services: {}\n"), 0o644))

	assert.NoError(t, o.Up(context.Background()))
}

func TestUpFailsWhenComposeUpFails(t *testing.T) {
	fake := dockerFake()
	fake.Results = map[string]execx.Result{
		"docker compose -p driftbox up": {ExitCode: 1, Stderr: "pull access denied"},
	}
	o := testOrchestrator(t, fake)

	err := o.Up(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start stack")
}

func TestTeardownPreservesDataByDefault(t *testing.T) {
	fake := dockerFake()
	o := testOrchestrator(t, fake)
	marker := filepath.Join(o.installDir, "data", "postgres", "base")
	require.NoError(t, os.MkdirAll(marker, 0o750))

	require.NoError(t, o.Teardown(context.Background(), false))

	_, err := os.Stat(marker)
	assert.NoError(t, err)
	assert.Contains(t, fake.CommandLines(), "systemctl disable --now driftbox.service")
}

func TestTeardownPurgesDataWhenAsked(t *testing.T) {
	fake := dockerFake()
	o := testOrchestrator(t, fake)
	marker := filepath.Join(o.installDir, "data", "postgres", "base")
	require.NoError(t, os.MkdirAll(marker, 0o750))

	require.NoError(t, o.Teardown(context.Background(), true))

	_, err := os.Stat(filepath.Join(o.installDir, "data"))
	assert.True(t, os.IsNotExist(err))
}

func TestTeardownRemovesUnitFile(t *testing.T) {
	fake := dockerFake()
	o := testOrchestrator(t, fake)
	require.NoError(t, os.WriteFile(o.UnitPath, []byte("[Unit]\n"), 0o644))

	require.NoError(t, o.Teardown(context.Background(), false))

	_, err := os.Stat(o.UnitPath)
	assert.True(t, os.IsNotExist(err))
}

func TestStatusReturnsServiceListing(t *testing.T) {
	fake := dockerFake()
	fake.Results = map[string]execx.Result{
		"docker compose -p driftbox ps": {Stdout: "NAME  STATE\napp   running\n"},
	}
	o := testOrchestrator(t, fake)

	out, err := o.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "app"))
}
