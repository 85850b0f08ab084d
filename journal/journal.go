// Package journal persists the history of provisioning runs on the host.
package journal

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oar-cd/berth/db"
	"github.com/oar-cd/berth/domain"
	"github.com/oar-cd/berth/repository"
)

// ErrRunNotFound is returned when no journaled run matches a reference.
var ErrRunNotFound = errors.New("run not found")

type Journal struct {
	db   *gorm.DB
	runs repository.RunRepository
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	gdb, err := db.InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening run journal %s: %w", path, err)
	}
	return &Journal{db: gdb, runs: repository.NewRunRepository(gdb)}, nil
}

// New wraps an existing repository.
func New(runs repository.RunRepository) *Journal {
	return &Journal{runs: runs}
}

func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (j *Journal) RunStarted(run *domain.Run) error {
	slog.Debug("Journaling run start",
		"layer", "journal",
		"run_id", run.ID)
	return j.runs.Create(run)
}

func (j *Journal) StageFinished(run *domain.Run, stage domain.StageRecord) error {
	return j.runs.AddStage(&stage)
}

func (j *Journal) RunFinished(run *domain.Run) error {
	slog.Debug("Journaling run outcome",
		"layer", "journal",
		"run_id", run.ID,
		"outcome", run.Outcome.String())
	return j.runs.Update(run)
}

// List returns the most recent runs first. A non-positive limit returns all of them.
func (j *Journal) List(limit int) ([]*domain.Run, error) {
	return j.runs.List(limit)
}

// Find resolves a full or abbreviated run ID.
func (j *Journal) Find(ref string) (*domain.Run, error) {
	var (
		run *domain.Run
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		run, err = j.runs.FindByID(id)
	} else {
		run, err = j.runs.FindByPrefix(ref)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}
