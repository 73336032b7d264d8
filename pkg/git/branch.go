// Package git reports version-control facts about a folder.
//
// Facts are read through go-git. DetectBranch reads HEAD directly so it also
// names the branch of a repository that has no commits yet.
package git

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotGitRepo means the folder has no .git entry.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrHeadNotFound means the git directory has no HEAD file.
	ErrHeadNotFound = errors.New("HEAD file not found")
)

// Detached is returned by DetectBranch when HEAD does not name a branch.
const Detached = "detached"

const (
	branchRefPrefix = "ref: refs/heads/"
	gitdirPrefix    = "gitdir:"
)

// DetectBranch returns the branch HEAD points at in the repository rooted
// at folderPath, or Detached when HEAD holds a commit hash.
//
// A .git file (linked worktrees, submodules) is followed to the git
// directory it names.
func DetectBranch(folderPath string) (string, error) {
	gitDir, err := resolveGitDir(folderPath)
	if err != nil {
		return "", err
	}

	headFile := filepath.Join(gitDir, "HEAD")
	content, err := os.ReadFile(headFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("%w: %s", ErrHeadNotFound, headFile)
	case err != nil:
		return "", fmt.Errorf("reading HEAD file: %w", err)
	}

	head := string(bytes.TrimSpace(content))
	if branch, ok := strings.CutPrefix(head, branchRefPrefix); ok && branch != "" {
		return branch, nil
	}
	return Detached, nil
}

// resolveGitDir locates the git directory of folderPath.
func resolveGitDir(folderPath string) (string, error) {
	dotGit := filepath.Join(folderPath, ".git")
	info, err := os.Stat(dotGit)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotGitRepo, folderPath)
	}
	if err != nil {
		return "", fmt.Errorf("inspecting .git: %w", err)
	}
	if info.IsDir() {
		return dotGit, nil
	}

	content, err := os.ReadFile(dotGit)
	if err != nil {
		return "", fmt.Errorf("reading .git file: %w", err)
	}
	line := strings.TrimSpace(string(content))
	target, ok := strings.CutPrefix(line, gitdirPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %s has no gitdir line", ErrNotGitRepo, dotGit)
	}
	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(folderPath, target)
	}
	return target, nil
}
