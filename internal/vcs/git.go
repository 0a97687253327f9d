// Package vcs locates the enclosing git repository of a path.
package vcs

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when no git repository encloses the path.
var ErrNotRepository = errors.New("not inside a git repository")

// RepoRoot returns the worktree root of the repository containing path,
// searching parent directories for .git.
func RepoRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w: %s", ErrNotRepository, abs)
		}
		return "", err
	}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no worktree to report paths against.
		return "", fmt.Errorf("%w: %s: %v", ErrNotRepository, abs, err)
	}
	return filepath.Clean(wt.Filesystem.Root()), nil
}

// ProjectRootOr returns the repository root for path, or fallback when path
// is not inside a repository.
func ProjectRootOr(path, fallback string) string {
	root, err := RepoRoot(path)
	if err != nil {
		return fallback
	}
	return root
}
