package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type Directory struct {
	Path        string
	Description string
}

type Directories struct {
	host *Host
}

func NewDirectories(h *Host) *Directories {
	return &Directories{host: h}
}

// List returns the directories the service needs, in creation order.
func (d *Directories) List() []Directory {
	cfg := d.host.Config
	return []Directory{
		{Path: cfg.LogDir, Description: "logs"},
		{Path: cfg.DataDir, Description: "database and application data"},
		{Path: filepath.Dir(cfg.EnvFile), Description: "environment configuration"},
	}
}

// Ensure creates missing directories and reasserts their ownership. Contents are left alone.
func (d *Directories) Ensure(ctx context.Context) error {
	for _, dir := range d.List() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(dir.Path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir.Path, err)
		}
		if err := os.Chown(dir.Path, d.host.Owner.UID, d.host.Owner.GID); err != nil {
			return fmt.Errorf("changing ownership of %s: %w", dir.Path, err)
		}
		d.host.success("Created %s (%s)", dir.Path, dir.Description)
	}
	return nil
}
