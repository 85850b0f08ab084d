package provision

import (
	"context"
	"fmt"
)

// Puller updates a working tree from its upstream and returns the resulting HEAD commit.
type Puller interface {
	Pull(ctx context.Context, workingDir string) (string, error)
}

type SourceSync struct {
	host *Host
	git  Puller
}

func NewSourceSync(h *Host, git Puller) *SourceSync {
	return &SourceSync{host: h, git: git}
}

// Sync pulls the checked-out branch of the project root.
func (s *SourceSync) Sync(ctx context.Context) (string, error) {
	root := s.host.Config.ProjectRoot
	s.host.info("Pulling latest changes in %s", root)

	commit, err := s.git.Pull(ctx, root)
	if err != nil {
		return "", fmt.Errorf("pulling %s: %w", root, err)
	}

	short := commit
	if len(short) > 8 {
		short = short[:8]
	}
	s.host.success("Source at commit %s", short)
	return commit, nil
}
