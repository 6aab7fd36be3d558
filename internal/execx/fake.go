package execx

import (
	"context"
	"strings"
	"sync"
)

// Fake is a Runner for tests. It records every invocation and answers from a
// table of canned results keyed by command-line prefix.
type Fake struct {
	mu sync.Mutex

	// Results maps a command-line prefix (e.g. "apt-get install") to the
	// result returned for matching invocations. Unmatched invocations
	// succeed with empty output.
	Results map[string]Result

	// Programs maps program names to their LookPath result. Programs not in
	// the map are reported as missing.
	Programs map[string]string

	// Calls records every Run invocation in order.
	Calls []Cmd
}

// Run records the invocation and returns the first prefix-matched result.
func (f *Fake) Run(_ context.Context, cmd Cmd) Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, cmd)

	line := cmd.String()
	for prefix, res := range f.Results {
		if strings.HasPrefix(line, prefix) {
			res.Command = line
			return res
		}
	}
	return Result{Command: line, ExitCode: 0}
}

// LookPath answers from the Programs table.
func (f *Fake) LookPath(program string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if path, ok := f.Programs[program]; ok {
		return path, nil
	}
	return "", &missingProgramError{program: program}
}

// CommandLines returns the recorded invocations as rendered command lines.
func (f *Fake) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, c.String())
	}
	return lines
}

type missingProgramError struct {
	program string
}

func (e *missingProgramError) Error() string {
	return "executable file not found in $PATH: " + e.program
}
