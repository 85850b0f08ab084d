package provision

import (
	"context"
	"fmt"

	"github.com/oar-cd/berth/runner"
)

const migrationsTolerated = "migration failed, but continuing (migrations will run on server startup)"

type Migrations struct {
	host *Host
}

func NewMigrations(h *Host) *Migrations {
	return &Migrations{host: h}
}

// EnsureTool installs sqlx-cli when it is missing.
func (m *Migrations) EnsureTool(ctx context.Context) error {
	if _, err := m.host.Runner.LookPath("sqlx"); err == nil {
		return nil
	}

	m.host.warn("sqlx-cli not found, installing...")
	cmd := runner.New("cargo", "install", "sqlx-cli", "--no-default-features", "--features", "sqlite")
	if _, err := m.host.run(ctx, cmd); err != nil {
		return fmt.Errorf("installing sqlx-cli: %w", err)
	}
	return nil
}

// Apply runs pending migrations. Failure is tolerated because the service migrates on startup.
func (m *Migrations) Apply(ctx context.Context) error {
	cfg := m.host.Config
	m.host.info("Running migrations for database: %s", cfg.DatabaseURL())

	cmd := runner.Tolerant("sqlx", "migrate", "run",
		"--database-url", cfg.DatabaseURL(),
		"--source", cfg.MigrationsDir,
	).In(cfg.ProjectRoot)

	res, err := m.host.try(ctx, cmd)
	if err != nil {
		return err
	}
	if !res.Success() {
		return Tolerate(&runner.CommandError{Result: res}, migrationsTolerated)
	}

	m.host.success("Migrations completed successfully")
	return nil
}
