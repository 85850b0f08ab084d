package mocks

import (
	"context"
	"fmt"
	"strings"

	"github.com/oar-cd/berth/runner"
)

// Response scripts the outcome of a command matched by prefix.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Err is returned as a start failure, independent of FailFast.
	Err error
	// Effect runs before the result is produced, e.g. to create a build artifact.
	Effect func() error
}

// Runner implements runner.Runner for testing. Unscripted commands succeed with no output.
type Runner struct {
	// Responses are matched against Command.String(); the longest matching prefix wins.
	Responses map[string]Response
	// Missing lists tools LookPath reports as absent.
	Missing map[string]bool
	// RunFunc, when set, replaces the scripted behaviour entirely.
	RunFunc func(ctx context.Context, cmd runner.Command) (*runner.Result, error)

	Calls []runner.Command
}

// Ensure Runner implements runner.Runner
var _ runner.Runner = (*Runner)(nil)

func NewRunner() *Runner {
	return &Runner{
		Responses: map[string]Response{},
		Missing:   map[string]bool{},
	}
}

// On scripts a response for commands starting with prefix.
func (m *Runner) On(prefix string, resp Response) *Runner {
	m.Responses[prefix] = resp
	return m
}

func (m *Runner) LookPath(name string) (string, error) {
	if m.Missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

func (m *Runner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	m.Calls = append(m.Calls, cmd)

	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd)
	}

	if err := ctx.Err(); err != nil {
		return &runner.Result{Command: cmd, ExitCode: -1}, fmt.Errorf("running %q: %w", cmd.String(), err)
	}

	resp, _ := m.match(cmd.String())
	if resp.Effect != nil {
		if err := resp.Effect(); err != nil {
			return nil, err
		}
	}
	if resp.Err != nil {
		return &runner.Result{Command: cmd, ExitCode: -1}, resp.Err
	}

	result := &runner.Result{
		Command:  cmd,
		ExitCode: resp.ExitCode,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
	}
	if !result.Success() && cmd.FailFast {
		return result, &runner.CommandError{Result: result}
	}
	return result, nil
}

func (m *Runner) match(line string) (Response, bool) {
	best := ""
	found := false
	for prefix := range m.Responses {
		if strings.HasPrefix(line, prefix) && len(prefix) >= len(best) {
			best = prefix
			found = true
		}
	}
	if !found {
		return Response{}, false
	}
	return m.Responses[best], true
}

// Commands returns every invoked command line in order.
func (m *Runner) Commands() []string {
	lines := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		lines[i] = c.String()
	}
	return lines
}

// Index returns the position of the first command starting with prefix, or -1.
func (m *Runner) Index(prefix string) int {
	for i, c := range m.Calls {
		if strings.HasPrefix(c.String(), prefix) {
			return i
		}
	}
	return -1
}

// Ran reports whether any command starting with prefix was invoked.
func (m *Runner) Ran(prefix string) bool {
	return m.Index(prefix) >= 0
}

// Reset forgets recorded calls but keeps the script.
func (m *Runner) Reset() {
	m.Calls = nil
}
