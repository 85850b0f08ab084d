package provision

import (
	"errors"
	"fmt"
)

// NoticeKind classifies a non-fatal stage result.
type NoticeKind int

const (
	// NoticeSkipped means the stage found nothing to do, e.g. the artifact is already present.
	NoticeSkipped NoticeKind = iota
	// NoticeTolerated means an operation failed and the run continues.
	NoticeTolerated
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSkipped:
		return "skipped"
	case NoticeTolerated:
		return "tolerated"
	default:
		return "unknown"
	}
}

// Notice is returned by a provisioner that did not complete its work but must not abort the run.
type Notice struct {
	Kind   NoticeKind
	Reason string
	Err    error
}

func (n *Notice) Error() string {
	if n.Err != nil {
		return fmt.Sprintf("%s: %v", n.Reason, n.Err)
	}
	return n.Reason
}

func (n *Notice) Unwrap() error {
	return n.Err
}

// Skip reports that a stage had nothing to do.
func Skip(format string, a ...any) error {
	return &Notice{Kind: NoticeSkipped, Reason: fmt.Sprintf(format, a...)}
}

// Tolerate marks err as a failure the run continues past.
func Tolerate(err error, format string, a ...any) error {
	return &Notice{Kind: NoticeTolerated, Reason: fmt.Sprintf(format, a...), Err: err}
}

// AsNotice extracts a Notice from err.
func AsNotice(err error) (*Notice, bool) {
	var n *Notice
	if errors.As(err, &n) {
		return n, true
	}
	return nil, false
}
