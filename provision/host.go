// Package provision holds the idempotent provisioners that bring a host to a deployed state.
// Each provisioner works against a Host: the immutable configuration, the command runner and
// the numeric ownership applied to the files it lays down.
package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/fatih/color"

	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/config"
	"github.com/oar-cd/berth/runner"
)

// Ownership is a numeric uid/gid pair applied with chown.
type Ownership struct {
	UID int
	GID int
}

// LookupOwnership resolves the service account and group on this host.
func LookupOwnership(userName, groupName string) (Ownership, error) {
	u, err := user.Lookup(userName)
	if err != nil {
		return Ownership{}, fmt.Errorf("looking up user %s: %w", userName, err)
	}
	g, err := user.LookupGroup(groupName)
	if err != nil {
		return Ownership{}, fmt.Errorf("looking up group %s: %w", groupName, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Ownership{}, fmt.Errorf("parsing uid %q of %s: %w", u.Uid, userName, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return Ownership{}, fmt.Errorf("parsing gid %q of %s: %w", g.Gid, groupName, err)
	}

	return Ownership{UID: uid, GID: gid}, nil
}

// CurrentOwnership is the ownership of the running process.
func CurrentOwnership() Ownership {
	return Ownership{UID: os.Getuid(), GID: os.Getgid()}
}

// Host is what every provisioner operates on.
type Host struct {
	Config config.Config
	Runner runner.Runner

	// Owner is the service account, applied to directories and assets it writes to.
	Owner Ownership
	// Privileged owns files the service may read but not modify (root, service group).
	Privileged Ownership

	Out   io.Writer
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewHost resolves the service account and returns a Host for a real deployment.
func NewHost(cfg config.Config, r runner.Runner, out io.Writer) (*Host, error) {
	owner, err := LookupOwnership(cfg.ServiceUser, cfg.ServiceGroup)
	if err != nil {
		return nil, fmt.Errorf("resolving service account: %w", err)
	}

	return &Host{
		Config:     cfg,
		Runner:     r,
		Owner:      owner,
		Privileged: Ownership{UID: 0, GID: owner.GID},
		Out:        out,
		Sleep:      SleepContext,
	}, nil
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (h *Host) sleep(ctx context.Context, d time.Duration) error {
	if h.Sleep == nil {
		return SleepContext(ctx, d)
	}
	return h.Sleep(ctx, d)
}

func (h *Host) print(kind color.Attribute, tmpl string, a ...any) {
	_ = output.Fprint(h.Out, kind, tmpl, a...)
}

func (h *Host) info(tmpl string, a ...any) {
	h.print(output.Plain, tmpl, a...)
}

func (h *Host) success(tmpl string, a ...any) {
	h.print(output.Success, "✓ "+tmpl, a...)
}

func (h *Host) warn(tmpl string, a ...any) {
	h.print(output.Warning, "⚠ "+tmpl, a...)
}

// run executes a command whose failure is an error.
func (h *Host) run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	return h.Runner.Run(ctx, cmd)
}

// try executes a best-effort command. Only cancellation is returned as an error;
// a command that cannot be started is reported as exit code -1.
func (h *Host) try(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	cmd.FailFast = false
	res, err := h.Runner.Run(ctx, cmd)
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	slog.Warn("Best-effort command could not run",
		"layer", "provision",
		"operation", "try",
		"command", cmd.String(),
		"error", err)
	return &runner.Result{Command: cmd, ExitCode: -1, Stderr: err.Error()}, nil
}

// Exists reports whether path is present, following symlinks.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
