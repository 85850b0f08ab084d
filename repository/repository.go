package repository

import (
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oar-cd/berth/db"
	"github.com/oar-cd/berth/domain"
)

type RunRepository interface {
	Create(run *domain.Run) error
	Update(run *domain.Run) error
	FindByID(id uuid.UUID) (*domain.Run, error)
	FindByPrefix(prefix string) (*domain.Run, error)
	List(limit int) ([]*domain.Run, error)
	AddStage(stage *domain.StageRecord) error
}

type runRepository struct {
	db     *gorm.DB
	mapper *RunMapper
}

func (r *runRepository) Create(run *domain.Run) error {
	m := r.mapper.ToModel(run)
	if err := r.db.Omit("Stages").Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_run",
			"run_id", run.ID,
			"error", err)
		return err
	}
	return nil
}

// Update writes the run's outcome fields. Stages are left as recorded.
func (r *runRepository) Update(run *domain.Run) error {
	m := r.mapper.ToModel(run)
	return r.db.Model(&db.RunModel{}).
		Where("id = ?", m.ID).
		Select("commit_hash", "outcome", "error", "finished_at").
		Updates(m).
		Error
}

func (r *runRepository) FindByID(id uuid.UUID) (*domain.Run, error) {
	var m db.RunModel
	err := r.db.
		Preload("Stages", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		First(&m, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToDomain(&m), nil
}

// FindByPrefix resolves an abbreviated run ID. No match is gorm.ErrRecordNotFound,
// more than one is ErrAmbiguousID.
func (r *runRepository) FindByPrefix(prefix string) (*domain.Run, error) {
	var ids []uuid.UUID
	if err := r.db.Model(&db.RunModel{}).
		Where("id LIKE ?", prefix+"%").
		Limit(2).
		Pluck("id", &ids).
		Error; err != nil {
		return nil, err
	}

	switch len(ids) {
	case 0:
		return nil, gorm.ErrRecordNotFound
	case 1:
		return r.FindByID(ids[0])
	default:
		return nil, ErrAmbiguousID
	}
}

func (r *runRepository) List(limit int) ([]*domain.Run, error) {
	var models []db.RunModel
	q := r.db.Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	runs := make([]*domain.Run, len(models))
	for i, model := range models {
		runs[i] = r.mapper.ToDomain(&model)
	}
	return runs, nil
}

func (r *runRepository) AddStage(stage *domain.StageRecord) error {
	m := r.mapper.stages.ToModel(stage)
	if err := r.db.Omit("Run").Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "add_stage",
			"run_id", stage.RunID,
			"stage", stage.Name,
			"error", err)
		return err
	}
	return nil
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{
		db:     db,
		mapper: NewRunMapper(),
	}
}
