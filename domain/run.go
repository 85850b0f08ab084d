package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run is one invocation of the provisioning pipeline on this host.
type Run struct {
	ID          uuid.UUID
	ServiceName string
	Commit      string
	Outcome     RunOutcome
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Stages      []StageRecord
}

func NewRun(serviceName string, startedAt time.Time) Run {
	return Run{
		ID:          uuid.New(),
		ServiceName: serviceName,
		Outcome:     RunOutcomeInProgress,
		StartedAt:   startedAt,
	}
}

// Duration is zero until the run has finished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ShortCommit returns the first 8 characters of the source commit.
func (r *Run) ShortCommit() string {
	if len(r.Commit) > 8 {
		return r.Commit[:8]
	}
	return r.Commit
}

type StageRecord struct {
	ID        uuid.UUID
	RunID     uuid.UUID
	Position  int
	Name      string
	Status    StageStatus
	Message   string
	StartedAt time.Time
	Duration  time.Duration
}

func NewStageRecord(runID uuid.UUID, position int, name string, startedAt time.Time) StageRecord {
	return StageRecord{
		ID:        uuid.New(),
		RunID:     runID,
		Position:  position,
		Name:      name,
		StartedAt: startedAt,
	}
}
