// Package runner executes external commands on behalf of the provisioning stages.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Command describes a single external invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// FailFast turns a non-zero exit status into a *CommandError.
	FailFast bool
	// Stream sends output straight to the runner's writer instead of capturing it.
	Stream bool
}

// New returns a fail-fast command.
func New(name string, args ...string) Command {
	return Command{Name: name, Args: args, FailFast: true}
}

// Tolerant returns a command whose non-zero exit is left to the caller.
func Tolerant(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Streaming returns a copy of c whose output is not captured.
func (c Command) Streaming() Command {
	c.Stream = true
	return c
}

// In sets the working directory.
func (c Command) In(dir string) Command {
	c.Dir = dir
	return c
}

// RunAs wraps a shell script so it runs under the given account with a login-less bash.
func RunAs(user, script string) Command {
	return New("sudo", "-u", user, "bash", "-c", script)
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of one command. It is consumed by the invoking stage and never stored.
type Result struct {
	Command  Command
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports a zero exit status.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// CommandError is returned for a non-zero exit of a fail-fast command.
type CommandError struct {
	Result *Result
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d", e.Result.Command.String(), e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Runner is the single point where berth touches the operating system for arbitrary commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec and echoes progress to Out.
type ExecRunner struct {
	Out io.Writer
}

// Ensure ExecRunner implements Runner
var _ Runner = (*ExecRunner)(nil)

func NewExecRunner(out io.Writer) *ExecRunner {
	return &ExecRunner{Out: out}
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes cmd and waits for it. Start failures and cancellation are always errors;
// a non-zero exit is an error only for fail-fast commands.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	r.printf("Running: %s\n", cmd.String())

	slog.Debug("Executing command",
		"command", cmd.Name,
		"args", cmd.Args,
		"working_dir", cmd.Dir)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Stream && r.Out != nil {
		c.Stdout = r.Out
		c.Stderr = r.Out
	}

	started := time.Now()
	err := c.Run()
	result := &Result{
		Command:  cmd,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(started),
	}

	if result.Stdout != "" {
		r.printf("%s\n", strings.TrimRight(result.Stdout, "\n"))
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		slog.Warn("Command interrupted",
			"layer", "runner",
			"operation", "run",
			"command", cmd.String(),
			"error", ctxErr)
		return result, fmt.Errorf("running %q: %w", cmd.String(), ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			slog.Error("Service operation failed",
				"layer", "runner",
				"operation", "start",
				"command", cmd.String(),
				"error", err)
			return result, fmt.Errorf("running %q: %w", cmd.String(), err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	if result.Success() {
		return result, nil
	}

	r.printf("Command failed with exit code %d\n", result.ExitCode)
	if result.Stderr != "" {
		r.printf("Error: %s\n", strings.TrimRight(result.Stderr, "\n"))
	}

	slog.Debug("Command exited with non-zero status",
		"command", cmd.String(),
		"exit_code", result.ExitCode,
		"fail_fast", cmd.FailFast)

	if cmd.FailFast {
		return result, &CommandError{Result: result}
	}
	return result, nil
}

func (r *ExecRunner) printf(format string, a ...any) {
	if r.Out == nil {
		return
	}
	fmt.Fprintf(r.Out, format, a...) // nolint:errcheck
}
