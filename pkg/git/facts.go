package git

import (
	"context"
	"errors"
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Facts summarizes a repository's branches and history.
type Facts struct {
	Branches []string
	// CurrentBranch is nil when HEAD is detached.
	CurrentBranch *string
	CommitCount   int
}

// Provider reads Facts through go-git.
type Provider struct{}

// NewProvider creates a Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Facts opens the repository at root and collects its local branches, the
// checked-out branch and the number of commits reachable from HEAD.
//
// A repository without commits yields zero commits; its current branch is
// taken from .git/HEAD.
func (p *Provider) Facts(ctx context.Context, root string) (*Facts, error) {
	repo, err := gogit.PlainOpen(root)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, root)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	branches, err := listBranches(repo)
	if err != nil {
		return nil, err
	}
	facts := &Facts{Branches: branches}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		if branch, err := DetectBranch(root); err == nil && branch != Detached {
			facts.CurrentBranch = &branch
		}
		return facts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	if head.Name().IsBranch() {
		name := head.Name().Short()
		facts.CurrentBranch = &name
	}

	count, err := countCommits(ctx, repo, head.Hash())
	if err != nil {
		return nil, err
	}
	facts.CommitCount = count

	return facts, nil
}

func listBranches(repo *gogit.Repository) ([]string, error) {
	iter, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	defer iter.Close()

	names := []string{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func countCommits(ctx context.Context, repo *gogit.Repository, from plumbing.Hash) (int, error) {
	commits, err := repo.Log(&gogit.LogOptions{From: from})
	if err != nil {
		return 0, fmt.Errorf("reading log: %w", err)
	}
	defer commits.Close()

	count := 0
	err = commits.ForEach(func(*object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking log: %w", err)
	}
	return count, nil
}
