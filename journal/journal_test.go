package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/domain"
	"github.com/oar-cd/berth/repository"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "berth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func recordRun(t *testing.T, j *Journal, started time.Time, outcome domain.RunOutcome, stages ...string) *domain.Run {
	t.Helper()

	run := domain.NewRun("tama-server", started)
	require.NoError(t, j.RunStarted(&run))

	for i, name := range stages {
		stage := domain.NewStageRecord(run.ID, i+1, name, started.Add(time.Duration(i)*time.Second))
		stage.Status = domain.StageStatusCompleted
		stage.Duration = 1500 * time.Millisecond
		require.NoError(t, j.StageFinished(&run, stage))
		run.Stages = append(run.Stages, stage)
	}

	run.Commit = "0123456789abcdef0123456789abcdef01234567"
	run.Outcome = outcome
	run.FinishedAt = started.Add(time.Minute)
	require.NoError(t, j.RunFinished(&run))
	return &run
}

func TestJournal_RoundTrip(t *testing.T) {
	j := openTestJournal(t)
	started := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	run := recordRun(t, j, started, domain.RunOutcomeRunning, "preflight", "source_sync", "build")

	found, err := j.Find(run.ID.String())
	require.NoError(t, err)
	assert.Equal(t, run.ID, found.ID)
	assert.Equal(t, "tama-server", found.ServiceName)
	assert.Equal(t, run.Commit, found.Commit)
	assert.Equal(t, domain.RunOutcomeRunning, found.Outcome)
	assert.True(t, started.Equal(found.StartedAt))
	assert.Equal(t, time.Minute, found.Duration())

	require.Len(t, found.Stages, 3)
	assert.Equal(t, "preflight", found.Stages[0].Name)
	assert.Equal(t, "build", found.Stages[2].Name)
	assert.Equal(t, 3, found.Stages[2].Position)
	assert.Equal(t, domain.StageStatusCompleted, found.Stages[1].Status)
	assert.Equal(t, 1500*time.Millisecond, found.Stages[1].Duration)
}

func TestJournal_InProgressRun(t *testing.T) {
	j := openTestJournal(t)

	run := domain.NewRun("tama-server", time.Now())
	require.NoError(t, j.RunStarted(&run))

	found, err := j.Find(run.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.RunOutcomeInProgress, found.Outcome)
	assert.True(t, found.FinishedAt.IsZero())
	assert.Empty(t, found.Commit)
}

func TestJournal_List(t *testing.T) {
	j := openTestJournal(t)
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	oldest := recordRun(t, j, base, domain.RunOutcomeAborted)
	middle := recordRun(t, j, base.Add(time.Hour), domain.RunOutcomeRebooting)
	newest := recordRun(t, j, base.Add(2*time.Hour), domain.RunOutcomeRunning)

	all, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID, all[0].ID)
	assert.Equal(t, middle.ID, all[1].ID)
	assert.Equal(t, oldest.ID, all[2].ID)

	limited, err := j.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestJournal_Find(t *testing.T) {
	j := openTestJournal(t)
	run := recordRun(t, j, time.Now(), domain.RunOutcomeRunning, "preflight")

	t.Run("prefix", func(t *testing.T) {
		found, err := j.Find(run.ID.String()[:8])
		require.NoError(t, err)
		assert.Equal(t, run.ID, found.ID)
		assert.Len(t, found.Stages, 1)
	})

	t.Run("unknown full ID", func(t *testing.T) {
		_, err := j.Find("00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("unknown prefix", func(t *testing.T) {
		_, err := j.Find("zzzz")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		recordRun(t, j, time.Now(), domain.RunOutcomeRunning)
		_, err := j.Find("")
		assert.ErrorIs(t, err, repository.ErrAmbiguousID)
	})
}

func TestJournal_DuplicateStagePosition(t *testing.T) {
	j := openTestJournal(t)
	run := domain.NewRun("tama-server", time.Now())
	require.NoError(t, j.RunStarted(&run))

	first := domain.NewStageRecord(run.ID, 1, "preflight", time.Now())
	first.Status = domain.StageStatusCompleted
	require.NoError(t, j.StageFinished(&run, first))

	again := domain.NewStageRecord(run.ID, 1, "preflight", time.Now())
	again.Status = domain.StageStatusCompleted
	assert.Error(t, j.StageFinished(&run, again))
}
