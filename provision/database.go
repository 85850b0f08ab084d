package provision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Database reports on the service's persisted database. It never touches its content.
type Database struct {
	host *Host
}

func NewDatabase(h *Host) *Database {
	return &Database{host: h}
}

func (d *Database) Check(ctx context.Context) (bool, error) {
	path := d.host.Config.DatabasePath()

	_, err := os.Stat(path)
	switch {
	case err == nil:
		d.host.success("Database exists (preserved): %s", path)
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		d.host.info("ℹ Database will be created on first startup: %s", path)
		return false, nil
	default:
		return false, fmt.Errorf("checking database: %w", err)
	}
}
