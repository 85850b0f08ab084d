package domain

import "fmt"

// RunOutcome is the terminal state of a provisioning run.
//
// A run starts InProgress and ends in exactly one of:
// Running (service up), Rebooting (stages done, service down, host reboot issued)
// or Aborted (a fatal precondition or stage failure, or an interrupt).
type RunOutcome int

const (
	RunOutcomeUnknown RunOutcome = iota
	RunOutcomeInProgress
	RunOutcomeRunning
	RunOutcomeRebooting
	RunOutcomeAborted
)

func (o RunOutcome) String() string {
	switch o {
	case RunOutcomeInProgress:
		return "in_progress"
	case RunOutcomeRunning:
		return "running"
	case RunOutcomeRebooting:
		return "rebooting"
	case RunOutcomeAborted:
		return "aborted"
	case RunOutcomeUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (o RunOutcome) Terminal() bool {
	return o == RunOutcomeRunning || o == RunOutcomeRebooting || o == RunOutcomeAborted
}

// ExitCode is the process exit status for the outcome.
func (o RunOutcome) ExitCode() int {
	switch o {
	case RunOutcomeRunning, RunOutcomeRebooting:
		return 0
	default:
		return 1
	}
}

func ParseRunOutcome(s string) (RunOutcome, error) {
	switch s {
	case "in_progress":
		return RunOutcomeInProgress, nil
	case "running":
		return RunOutcomeRunning, nil
	case "rebooting":
		return RunOutcomeRebooting, nil
	case "aborted":
		return RunOutcomeAborted, nil
	case "unknown":
		return RunOutcomeUnknown, nil
	default:
		return RunOutcomeUnknown, fmt.Errorf("invalid run outcome: %q", s)
	}
}

// StageStatus records how a single stage ended.
type StageStatus int

const (
	StageStatusUnknown StageStatus = iota
	StageStatusCompleted
	StageStatusSkipped
	StageStatusTolerated
	StageStatusFailed
)

func (s StageStatus) String() string {
	switch s {
	case StageStatusCompleted:
		return "completed"
	case StageStatusSkipped:
		return "skipped"
	case StageStatusTolerated:
		return "tolerated"
	case StageStatusFailed:
		return "failed"
	case StageStatusUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

func ParseStageStatus(s string) (StageStatus, error) {
	switch s {
	case "completed":
		return StageStatusCompleted, nil
	case "skipped":
		return StageStatusSkipped, nil
	case "tolerated":
		return StageStatusTolerated, nil
	case "failed":
		return StageStatusFailed, nil
	case "unknown":
		return StageStatusUnknown, nil
	default:
		return StageStatusUnknown, fmt.Errorf("invalid stage status: %q", s)
	}
}
