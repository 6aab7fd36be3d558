// Package execx models external command invocations as explicit result values.
//
// Every command the provisioner runs on the host goes through a Runner, and
// the decision whether a failure is fatal is made by the caller inspecting the
// Result, never by suppressing errors at the invocation site.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/driftbox/driftboxctl/internal/logging"
)

// Cmd describes a single external command invocation.
type Cmd struct {
	// Name is the program to run, resolved against PATH.
	Name string
	// Args are the program arguments.
	Args []string
	// Dir is the working directory; empty means the process default.
	Dir string
	// Env holds extra environment variables appended to the process environment.
	Env map[string]string
}

// String renders the invocation for logs.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result captures the outcome of a command invocation.
type Result struct {
	// Command is the rendered invocation, for logs and errors.
	Command string
	// Stdout and Stderr hold the captured output.
	Stdout string
	Stderr string
	// ExitCode is the process exit code; -1 when the process never ran.
	ExitCode int
	// Duration is the wall-clock time the invocation took.
	Duration time.Duration
	// Err is the start/wait error, if any.
	Err error
}

// Ok reports whether the command ran and exited zero.
func (r Result) Ok() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Failure returns a descriptive error for a failed invocation, nil when Ok.
func (r Result) Failure() error {
	if r.Ok() {
		return nil
	}
	detail := strings.TrimSpace(r.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(r.Stdout)
	}
	if r.Err != nil && r.ExitCode < 0 {
		return fmt.Errorf("run %q: %w", r.Command, r.Err)
	}
	if detail != "" {
		return fmt.Errorf("run %q: exit code %d: %s", r.Command, r.ExitCode, detail)
	}
	return fmt.Errorf("run %q: exit code %d", r.Command, r.ExitCode)
}

// Runner executes external commands.
type Runner interface {
	// Run executes cmd and returns its result. The context bounds the
	// invocation; a cancelled context kills the process.
	Run(ctx context.Context, cmd Cmd) Result
	// LookPath reports the location of a program on PATH.
	LookPath(program string) (string, error)
}

// NewRunner constructs the Runner backed by os/exec. Command output is
// captured into the Result and mirrored to the logger at debug level.
func NewRunner(logger *slog.Logger) Runner {
	return &localRunner{logger: logger}
}

type localRunner struct {
	logger *slog.Logger
}

func (l *localRunner) Run(ctx context.Context, cmd Cmd) Result {
	start := time.Now()

	ec := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	ec.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		ec.Env = os.Environ()
		for k, v := range cmd.Env {
			ec.Env = append(ec.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	ec.Stdout = &stdout
	ec.Stderr = &stderr
	if l.logger != nil {
		mirror := logging.NewCommandWriter(l.logger, cmd.String())
		ec.Stdout = io.MultiWriter(&stdout, mirror)
		ec.Stderr = io.MultiWriter(&stderr, mirror)
	}

	err := ec.Run()

	res := Result{
		Command:  cmd.String(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.Err = err
	}

	return res
}

func (l *localRunner) LookPath(program string) (string, error) {
	return exec.LookPath(program)
}
