// Package git keeps the service's source checkout up to date using go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// DefaultRemote is the remote the checkout is pulled from.
const DefaultRemote = "origin"

// ErrDetachedHead is returned when the checkout is not on a branch.
var ErrDetachedHead = errors.New("repository HEAD is detached")

// sshKeyNames are tried in this order, as ssh does.
var sshKeyNames = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

type GitService struct {
	timeout   time.Duration
	sshKeyDir string
}

type Option func(*GitService)

// WithSSHKeyDir makes SSH remotes authenticate with the first private key found in dir.
func WithSSHKeyDir(dir string) Option {
	return func(s *GitService) {
		s.sshKeyDir = dir
	}
}

func NewGitService(timeout time.Duration, opts ...Option) *GitService {
	s := &GitService{timeout: timeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// authMethod returns key-file auth for an SSH origin. Nil leaves go-git's default,
// which is ssh-agent for SSH and anonymous for everything else.
func (s *GitService) authMethod(repo *git.Repository) (transport.AuthMethod, error) {
	if s.sshKeyDir == "" {
		return nil, nil
	}

	remote, err := repo.Remote(DefaultRemote)
	if err != nil {
		return nil, fmt.Errorf("failed to get remote %s: %w", DefaultRemote, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return nil, nil
	}

	endpoint, err := transport.NewEndpoint(urls[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse remote URL: %w", err)
	}
	if endpoint.Protocol != "ssh" {
		return nil, nil
	}

	user := endpoint.User
	if user == "" {
		user = "git" // Default for Git operations
	}

	for _, name := range sshKeyNames {
		path := filepath.Join(s.sshKeyDir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		auth, err := ssh.NewPublicKeysFromFile(user, path, "")
		if err != nil {
			slog.Warn("Skipping unusable SSH key",
				"layer", "git",
				"operation", "git_auth",
				"path", path,
				"error", err)
			continue
		}
		slog.Debug("Using SSH key for remote", "path", path, "git_user", user)
		return auth, nil
	}

	return nil, nil
}

// CurrentBranch returns the short name of the checked-out branch
func (s *GitService) CurrentBranch(workingDir string) (string, error) {
	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_current_branch",
			"working_dir", workingDir,
			"error", err)
		return "", fmt.Errorf("failed to open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}

	return head.Name().Short(), nil
}

// Pull fetches the checked-out branch from origin and fast-forwards the worktree to it.
// It returns the HEAD commit after the pull.
func (s *GitService) Pull(ctx context.Context, workingDir string) (string, error) {
	branch, err := s.CurrentBranch(workingDir)
	if err != nil {
		return "", err
	}

	slog.Debug("Pulling repository changes", "git_branch", branch, "working_dir", workingDir)

	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		return "", fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_pull",
			"working_dir", workingDir,
			"error", err)
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	auth, err := s.authMethod(repo)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_pull_auth",
			"working_dir", workingDir,
			"error", err)
		return "", fmt.Errorf("failed to create auth method: %w", err)
	}

	fromCommit, _ := s.LatestCommit(workingDir)

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName:    DefaultRemote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_pull",
			"git_branch", branch,
			"working_dir", workingDir,
			"error", err)
		return "", fmt.Errorf("failed to pull %s/%s: %w", DefaultRemote, branch, err)
	}

	toCommit, err := s.LatestCommit(workingDir)
	if err != nil {
		return "", err
	}

	if fromCommit == toCommit {
		slog.Debug("Repository already up to date", "git_branch", branch, "working_dir", workingDir)
	} else {
		slog.Info("Repository updated successfully",
			"git_branch", branch,
			"working_dir", workingDir,
			"from_commit", fromCommit,
			"to_commit", toCommit)
	}

	return toCommit, nil
}

// LatestCommit returns the HEAD commit hash
func (s *GitService) LatestCommit(workingDir string) (string, error) {
	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_get_commit",
			"working_dir", workingDir,
			"error", err)
		return "", err
	}

	ref, err := repo.Head()
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_get_commit",
			"working_dir", workingDir,
			"error", err)
		return "", err
	}

	return ref.Hash().String(), nil
}
