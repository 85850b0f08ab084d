package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// journalPragmas are per connection; the journal keeps a single one.
const journalPragmas = `
	PRAGMA foreign_keys       = ON;
	PRAGMA journal_mode       = WAL;
	PRAGMA synchronous        = NORMAL;
	PRAGMA busy_timeout       = 5000;
	PRAGMA journal_size_limit = 4194304;`

// InitDB opens the journal at path, creating its directory, and brings its schema up to date.
func InitDB(path string) (*gorm.DB, error) {
	db, err := openJournal(path, getGormLogLevel())
	if err != nil {
		return nil, err
	}

	if err := AutoMigrateAll(db); err != nil {
		slog.Error("Database migration failed",
			"layer", "db",
			"operation", "migrate",
			"path", path,
			"error", err)
		return nil, err
	}

	slog.Debug("Database initialized successfully", "path", path)
	return db, nil
}

func openJournal(path string, level logger.LogLevel) (*gorm.DB, error) {
	slog.Debug("Opening run journal", "path", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("Database operation failed",
			"layer", "db",
			"operation", "create_dir",
			"dir", dir,
			"error", err)
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		slog.Error("Database operation failed",
			"layer", "db",
			"operation", "open",
			"path", path,
			"error", err)
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get journal connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec(journalPragmas).Error; err != nil {
		return nil, fmt.Errorf("failed to configure journal: %w", err)
	}

	return db, nil
}

// getGormLogLevel maps application log level to corresponding GORM log level
func getGormLogLevel() logger.LogLevel {
	ctx := slog.Default()

	if ctx.Enabled(context.TODO(), slog.LevelDebug) {
		return logger.Info // Show SQL queries only when debug logging is enabled
	} else if ctx.Enabled(context.TODO(), slog.LevelWarn) {
		return logger.Warn
	} else if ctx.Enabled(context.TODO(), slog.LevelError) {
		return logger.Error
	} else {
		return logger.Silent
	}
}
