package db

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGetGormLogLevel(t *testing.T) {
	tests := []struct {
		name           string
		logLevel       slog.Level
		expectedResult logger.LogLevel
	}{
		{name: "debug level returns info", logLevel: slog.LevelDebug, expectedResult: logger.Info},
		{name: "info level returns warn", logLevel: slog.LevelInfo, expectedResult: logger.Warn},
		{name: "warn level returns warn", logLevel: slog.LevelWarn, expectedResult: logger.Warn},
		{name: "error level returns error", logLevel: slog.LevelError, expectedResult: logger.Error},
		{name: "silent level returns silent", logLevel: slog.Level(1000), expectedResult: logger.Silent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: tt.logLevel,
			})
			originalLogger := slog.Default()
			slog.SetDefault(slog.New(handler))
			defer slog.SetDefault(originalLogger)

			assert.Equal(t, tt.expectedResult, getGormLogLevel())
		})
	}
}

func TestInitDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "berth.db")

	db, err := InitDB(path)
	require.NoError(t, err)
	require.NotNil(t, db)

	_, err = os.Stat(path)
	assert.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&RunModel{}))
	assert.True(t, db.Migrator().HasTable(&StageModel{}))
	assert.True(t, db.Migrator().HasIndex(&RunModel{}, "idx_runs_started_at"))

	applied, err := AppliedMigrations(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_index_runs_started_at", "0002_index_stages_run_position"}, applied)
}

func TestInitDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "berth.db")

	first, err := InitDB(path)
	require.NoError(t, err)
	sqlDB, err := first.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	second, err := InitDB(path)
	require.NoError(t, err)

	applied, err := AppliedMigrations(second)
	require.NoError(t, err)
	assert.Len(t, applied, 2, "migrations are applied once")
}

func TestInitDB_InvalidDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	db, err := InitDB(filepath.Join(blocker, "berth.db"))
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestStages_CascadeDelete(t *testing.T) {
	db := openTestDB(t)

	run := RunModel{
		BaseModel:   BaseModel{ID: uuid.New()},
		ServiceName: "tama-server",
		Outcome:     "running",
		StartedAt:   time.Now(),
	}
	require.NoError(t, db.Create(&run).Error)
	stage := StageModel{
		BaseModel: BaseModel{ID: uuid.New()},
		RunID:     run.ID,
		Position:  1,
		Name:      "preflight",
		Status:    "completed",
		StartedAt: time.Now(),
	}
	require.NoError(t, db.Create(&stage).Error)

	require.NoError(t, db.Delete(&RunModel{}, "id = ?", run.ID).Error)

	var count int64
	require.NoError(t, db.Model(&StageModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStages_UniquePosition(t *testing.T) {
	db := openTestDB(t)

	runID := uuid.New()
	require.NoError(t, db.Create(&RunModel{
		BaseModel: BaseModel{ID: runID}, ServiceName: "svc", Outcome: "running", StartedAt: time.Now(),
	}).Error)

	for i, wantErr := range []bool{false, true} {
		err := db.Create(&StageModel{
			BaseModel: BaseModel{ID: uuid.New()},
			RunID:     runID,
			Position:  1,
			Name:      "build",
			Status:    "completed",
			StartedAt: time.Now(),
		}).Error
		if wantErr {
			assert.Error(t, err, "attempt %d", i)
		} else {
			assert.NoError(t, err, "attempt %d", i)
		}
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := openJournal(filepath.Join(t.TempDir(), "berth.db"), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, AutoMigrateAll(db))
	return db
}

func TestGetGormLogLevel_RespectsDefaultLogger(t *testing.T) {
	originalLogger := slog.Default()
	defer slog.SetDefault(originalLogger)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	assert.False(t, slog.Default().Enabled(context.TODO(), slog.LevelWarn))
	assert.Equal(t, logger.Error, getGormLogLevel())
}

func TestInitDB_Pragmas(t *testing.T) {
	db, err := InitDB(filepath.Join(t.TempDir(), "nested", "state", "berth.db"))
	require.NoError(t, err)

	tests := []struct {
		pragma   string
		expected string
	}{
		{"foreign_keys", "1"},
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			var value string
			require.NoError(t, db.Raw("PRAGMA "+tt.pragma).Scan(&value).Error)
			assert.Equal(t, tt.expected, value)
		})
	}
}
