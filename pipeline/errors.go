package pipeline

import (
	"errors"
	"fmt"
)

// ErrNotPrivileged is returned when berth is not run as root.
var ErrNotPrivileged = errors.New("must be run as root (use: sudo berth)")

// StageError reports the stage that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
