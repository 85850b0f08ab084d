package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Migration represents a single database migration
type Migration struct {
	ID   int
	Name string
	Up   func(*gorm.DB) error
}

// allMigrations is the ordered list of all migrations.
// They run after AutoMigrate, so every table they touch exists.
var allMigrations = []Migration{
	{
		ID:   1,
		Name: "0001_index_runs_started_at",
		Up:   migration0001IndexRunsStartedAt,
	},
	{
		ID:   2,
		Name: "0002_index_stages_run_position",
		Up:   migration0002IndexStagesRunPosition,
	},
}

// AllModels returns all the models that need to be migrated
func AllModels() []any {
	return []any{
		&MigrationModel{},
		&RunModel{},
		&StageModel{},
	}
}

// AutoMigrateAll creates missing tables and applies pending migrations
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}
	return RunMigrations(db, len(allMigrations))
}

// RunMigrations runs all migrations up to and including the specified ID
// If targetID is 0 or negative, all migrations are run
func RunMigrations(db *gorm.DB, targetID int) error {
	if targetID <= 0 {
		targetID = len(allMigrations)
	}

	for _, migration := range allMigrations {
		if migration.ID > targetID {
			break
		}

		applied, err := migrationApplied(db, migration.Name)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", migration.Name, err)
		}
		if applied {
			continue
		}

		if err := migration.Up(db); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Name, err)
		}

		if err := recordMigration(db, migration.Name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
		}
	}

	return nil
}

// AppliedMigrations lists applied migration names in application order
func AppliedMigrations(db *gorm.DB) ([]string, error) {
	var names []string
	err := db.Model(&MigrationModel{}).Order("id").Pluck("name", &names).Error
	return names, err
}

func migrationApplied(db *gorm.DB, name string) (bool, error) {
	var count int64
	err := db.Model(&MigrationModel{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func recordMigration(db *gorm.DB, name string) error {
	migration := MigrationModel{
		Name:      name,
		AppliedAt: time.Now(),
	}
	return db.Create(&migration).Error
}

// migration0001IndexRunsStartedAt speeds up the newest-first history listing
func migration0001IndexRunsStartedAt(db *gorm.DB) error {
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC)").Error
}

// migration0002IndexStagesRunPosition keeps stages of one run unique by position
func migration0002IndexStagesRunPosition(db *gorm.DB) error {
	return db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_stages_run_position ON stages (run_id, position)").Error
}
