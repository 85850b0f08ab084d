package provision

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oar-cd/berth/runner"
)

// ErrArtifactMissing is returned when the build tool succeeded but the binary is absent.
var ErrArtifactMissing = errors.New("build artifact missing")

type Builder struct {
	host *Host
}

func NewBuilder(h *Host) *Builder {
	return &Builder{host: h}
}

// BuildScript is the shell script run as the service user.
func (b *Builder) BuildScript() string {
	cfg := b.host.Config
	return fmt.Sprintf("source $HOME/.cargo/env && cd %s && %s", cfg.ProjectRoot, cfg.BuildCommand)
}

// Build compiles the service as the service user and checks the binary was produced.
func (b *Builder) Build(ctx context.Context) error {
	cfg := b.host.Config
	b.host.info("This may take several minutes...")

	if _, err := b.host.run(ctx, runner.RunAs(cfg.ServiceUser, b.BuildScript())); err != nil {
		return fmt.Errorf("building %s: %w", cfg.BinaryName, err)
	}

	info, err := os.Stat(cfg.BinarySource)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, cfg.BinarySource)
	}

	b.host.success("Server binary built: %s", cfg.BinarySource)
	return nil
}
