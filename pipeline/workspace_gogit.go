package pipeline

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"
)

// GoGitWorkspaceProvider checks out revisions in-process with go-git, for
// hosts without a git binary.
type GoGitWorkspaceProvider struct {
	Root string
	Log  *logrus.Logger
}

func (p *GoGitWorkspaceProvider) Acquire(ctx context.Context, repositoryURL, branch, commit string) (workspace *Workspace, err error) {
	dir, err := newWorkspaceDir(p.Root)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			removePartialWorkspace(p.Log, dir)
		}
	}()

	repository, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           repositoryURL,
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Tags:          git.NoTags,
	})
	if err != nil {
		return nil, &InfrastructureError{Op: "clone " + repositoryURL, Err: err}
	}

	commit = strings.TrimSpace(commit)
	if len(commit) == 0 {
		return &Workspace{Dir: dir}, nil
	}

	hash, err := repository.ResolveRevision(plumbing.Revision(commit))
	if err != nil {
		return nil, &InfrastructureError{Op: "resolve " + commit, Err: err}
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return nil, &InfrastructureError{Op: "open worktree", Err: err}
	}

	if err = worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		return nil, &InfrastructureError{Op: "checkout " + commit, Err: err}
	}

	return &Workspace{Dir: dir}, nil
}
