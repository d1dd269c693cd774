package adapter

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// WorktreeGuard reports whether a path sits inside a git worktree with
// uncommitted changes. The run command refuses to rewrite dirty trees
// unless forced, so users always have a clean baseline to diff against.
type WorktreeGuard interface {
	Dirty(path string) (bool, error)
}

// GitWorktreeGuard provides a concrete WorktreeGuard backed by go-git.
type GitWorktreeGuard struct{}

// NewGitWorktreeGuard constructs a GitWorktreeGuard.
func NewGitWorktreeGuard() *GitWorktreeGuard {
	return &GitWorktreeGuard{}
}

// Dirty implements WorktreeGuard. Paths outside any repository count as
// clean: there is nothing to lose that git could have protected.
func (g *GitWorktreeGuard) Dirty(path string) (bool, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("opening repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("resolving worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("reading worktree status: %w", err)
	}
	return !status.IsClean(), nil
}
