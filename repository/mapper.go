// Package repository provides the data access layer for journaled runs and stages.
package repository

import (
	"log/slog"
	"time"

	"github.com/oar-cd/berth/db"
	"github.com/oar-cd/berth/domain"
)

type RunMapper struct {
	stages *StageMapper
}

func NewRunMapper() *RunMapper {
	return &RunMapper{stages: &StageMapper{}}
}

func (m *RunMapper) ToDomain(r *db.RunModel) *domain.Run {
	outcome, err := domain.ParseRunOutcome(r.Outcome)
	if err != nil {
		slog.Warn("Unknown run outcome in journal",
			"layer", "repository",
			"run_id", r.ID,
			"outcome", r.Outcome)
		outcome = domain.RunOutcomeUnknown
	}

	run := &domain.Run{
		ID:          r.ID,
		ServiceName: r.ServiceName,
		Outcome:     outcome,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
	}
	if r.CommitHash != nil {
		run.Commit = *r.CommitHash
	}
	if r.FinishedAt != nil {
		run.FinishedAt = *r.FinishedAt
	}
	for i := range r.Stages {
		run.Stages = append(run.Stages, *m.stages.ToDomain(&r.Stages[i]))
	}
	return run
}

// ToModel maps the run itself; stages are persisted separately.
func (m *RunMapper) ToModel(r *domain.Run) *db.RunModel {
	model := &db.RunModel{
		BaseModel: db.BaseModel{
			ID: r.ID,
		},
		ServiceName: r.ServiceName,
		Outcome:     r.Outcome.String(),
		Error:       r.Error,
		StartedAt:   r.StartedAt,
	}
	if r.Commit != "" {
		commit := r.Commit
		model.CommitHash = &commit
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		model.FinishedAt = &finished
	}
	return model
}

type StageMapper struct{}

func (m *StageMapper) ToDomain(s *db.StageModel) *domain.StageRecord {
	status, err := domain.ParseStageStatus(s.Status)
	if err != nil {
		status = domain.StageStatusUnknown
	}

	return &domain.StageRecord{
		ID:        s.ID,
		RunID:     s.RunID,
		Position:  s.Position,
		Name:      s.Name,
		Status:    status,
		Message:   s.Message,
		StartedAt: s.StartedAt,
		Duration:  time.Duration(s.DurationMs) * time.Millisecond,
	}
}

func (m *StageMapper) ToModel(s *domain.StageRecord) *db.StageModel {
	return &db.StageModel{
		BaseModel: db.BaseModel{
			ID: s.ID,
		},
		RunID:      s.RunID,
		Position:   s.Position,
		Name:       s.Name,
		Status:     s.Status.String(),
		Message:    s.Message,
		StartedAt:  s.StartedAt,
		DurationMs: s.Duration.Milliseconds(),
	}
}
