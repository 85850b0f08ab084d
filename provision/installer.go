package provision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/oar-cd/berth/runner"
)

type Installer struct {
	host *Host
}

func NewInstaller(h *Host) *Installer {
	return &Installer{host: h}
}

// InstallBinary stops the running service and replaces its binary.
func (i *Installer) InstallBinary(ctx context.Context) error {
	cfg := i.host.Config

	// The service may not exist yet and stray processes may not be running.
	if _, err := i.host.try(ctx, runner.Tolerant("systemctl", "stop", cfg.ServiceName)); err != nil {
		return err
	}
	if _, err := i.host.try(ctx, runner.Tolerant("killall", cfg.ServiceName)); err != nil {
		return err
	}

	if err := copyFile(cfg.BinarySource, cfg.BinaryDest, 0o755); err != nil {
		return fmt.Errorf("installing binary: %w", err)
	}
	if err := os.Chmod(cfg.BinaryDest, 0o755); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", cfg.BinaryDest, err)
	}

	i.host.success("Binary installed: %s", cfg.BinaryDest)
	return nil
}

// InstallStatic replaces the static asset tree and hands it to the service account.
func (i *Installer) InstallStatic(ctx context.Context) error {
	cfg := i.host.Config

	info, err := os.Stat(cfg.StaticSource)
	if errors.Is(err, fs.ErrNotExist) {
		return Skip("static directory not found: %s", cfg.StaticSource)
	}
	if err != nil {
		return fmt.Errorf("checking static directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("static source %s is not a directory", cfg.StaticSource)
	}

	if Exists(cfg.StaticDest) {
		if err := os.RemoveAll(cfg.StaticDest); err != nil {
			return fmt.Errorf("removing old static files: %w", err)
		}
		i.host.success("Removed old static files")
	}

	if err := copyTree(cfg.StaticSource, cfg.StaticDest); err != nil {
		return fmt.Errorf("copying static files: %w", err)
	}
	if err := chownTree(cfg.StaticDest, i.host.Owner); err != nil {
		return err
	}

	i.host.success("Static files installed: %s", cfg.StaticDest)
	return nil
}
