package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oar-cd/berth/runner"
)

// ErrToolchainMissing is returned when the build tool is not installed on the host.
var ErrToolchainMissing = errors.New("rust toolchain not found")

const rustupHint = "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh"

type Toolchain struct {
	host *Host
}

func NewToolchain(h *Host) *Toolchain {
	return &Toolchain{host: h}
}

// Check verifies cargo is installed and returns the version reported for the service user.
func (t *Toolchain) Check(ctx context.Context) (string, error) {
	if _, err := t.host.Runner.LookPath("cargo"); err != nil {
		t.host.warn("Rust/Cargo not found. Please install Rust first:")
		t.host.info("  %s", rustupHint)
		return "", fmt.Errorf("%w: %v", ErrToolchainMissing, err)
	}

	res, err := t.host.run(ctx, runner.RunAs(t.host.Config.ServiceUser, "source $HOME/.cargo/env && cargo --version"))
	if err != nil {
		return "", fmt.Errorf("querying cargo version as %s: %w", t.host.Config.ServiceUser, err)
	}

	version := strings.TrimSpace(res.Stdout)
	t.host.success("Rust installed: %s", version)
	return version, nil
}
