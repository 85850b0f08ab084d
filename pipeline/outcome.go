package pipeline

import (
	"errors"
	"fmt"

	"github.com/oar-cd/berth/domain"
)

// Terminal outcomes of a run.
const (
	OutcomeRunning   = domain.RunOutcomeRunning
	OutcomeRebooting = domain.RunOutcomeRebooting
	OutcomeAborted   = domain.RunOutcomeAborted
)

var ErrInvalidTransition = errors.New("invalid outcome transition")

// Transition validates a change of run outcome. A run leaves InProgress exactly once,
// into one of the terminal outcomes.
func Transition(from, to domain.RunOutcome) error {
	if from != domain.RunOutcomeInProgress || !to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ResolveOutcome maps the health signal of a completed run to its outcome.
func ResolveOutcome(running bool) domain.RunOutcome {
	if running {
		return OutcomeRunning
	}
	return OutcomeRebooting
}
