// Package fixtures builds on-disk git repositories and host layouts for tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type RepoFile struct {
	Path    string
	Content string
}

// InitGitRepo creates a repository at path with one commit containing files.
func InitGitRepo(path string, files []RepoFile) (*git.Repository, error) {
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize git repository: %w", err)
	}

	if _, err := CommitFiles(repo, "Initial commit", files); err != nil {
		return nil, err
	}

	return repo, nil
}

// CommitFiles writes files into the worktree and commits them.
func CommitFiles(repo *git.Repository, message string, files []RepoFile) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := AddRepoFiles(worktree, files); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to add files to git repository: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "John Doe",
			Email: "john@doe.org",
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to commit changes: %w", err)
	}

	return hash, nil
}

func AddRepoFiles(repoWorktree *git.Worktree, files []RepoFile) error {
	repoDir := repoWorktree.Filesystem.Root()

	for _, file := range files {
		filePath := filepath.Join(repoDir, file.Path)
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", file.Path, err)
		}
		if err := os.WriteFile(filePath, []byte(file.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", file.Path, err)
		}
		if _, err := repoWorktree.Add(file.Path); err != nil {
			return fmt.Errorf("failed to add file %s to git: %w", file.Path, err)
		}
	}

	return nil
}

// Upstream is a working repository pushing into a bare remote, plus a clone of that remote.
type Upstream struct {
	Working  *git.Repository
	CloneDir string
}

// NewUpstream lays out remote/, working/ and checkout/ under root and returns the checkout path.
func NewUpstream(root string, files []RepoFile) (*Upstream, error) {
	remoteDir := filepath.Join(root, "remote")
	workingDir := filepath.Join(root, "working")
	cloneDir := filepath.Join(root, "checkout")

	if _, err := git.PlainInit(remoteDir, true); err != nil {
		return nil, fmt.Errorf("failed to initialize remote: %w", err)
	}

	working, err := InitGitRepo(workingDir, files)
	if err != nil {
		return nil, err
	}

	if _, err := working.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteDir},
	}); err != nil {
		return nil, fmt.Errorf("failed to add remote: %w", err)
	}

	if err := working.Push(&git.PushOptions{}); err != nil {
		return nil, fmt.Errorf("failed to push: %w", err)
	}

	if _, err := git.PlainClone(cloneDir, false, &git.CloneOptions{URL: remoteDir}); err != nil {
		return nil, fmt.Errorf("failed to clone: %w", err)
	}

	return &Upstream{Working: working, CloneDir: cloneDir}, nil
}

// Publish commits files in the working repository and pushes them to the remote.
func (u *Upstream) Publish(message string, files []RepoFile) (plumbing.Hash, error) {
	hash, err := CommitFiles(u.Working, message, files)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err := u.Working.Push(&git.PushOptions{}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to push: %w", err)
	}
	return hash, nil
}
