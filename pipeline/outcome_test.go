package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oar-cd/berth/domain"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.RunOutcome
		to      domain.RunOutcome
		wantErr bool
	}{
		{"in progress to running", domain.RunOutcomeInProgress, OutcomeRunning, false},
		{"in progress to rebooting", domain.RunOutcomeInProgress, OutcomeRebooting, false},
		{"in progress to aborted", domain.RunOutcomeInProgress, OutcomeAborted, false},
		{"in progress to in progress", domain.RunOutcomeInProgress, domain.RunOutcomeInProgress, true},
		{"running to aborted", OutcomeRunning, OutcomeAborted, true},
		{"aborted to running", OutcomeAborted, OutcomeRunning, true},
		{"unknown to running", domain.RunOutcomeUnknown, OutcomeRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Transition(tt.from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveOutcome(t *testing.T) {
	assert.Equal(t, OutcomeRunning, ResolveOutcome(true))
	assert.Equal(t, OutcomeRebooting, ResolveOutcome(false))
}
