package repository

import "errors"

// ErrAmbiguousID is returned when an abbreviated run ID matches more than one run.
var ErrAmbiguousID = errors.New("run ID prefix matches more than one run")
