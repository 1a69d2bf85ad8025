package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const WORKSPACE_PREFIX = "ci-checkout-"

// Workspace is a disposable checkout owned by exactly one run.
type Workspace struct {
	Dir string
}

// Destroy removes the workspace directory recursively.
func (w *Workspace) Destroy() error {
	if w == nil || len(w.Dir) == 0 {
		return nil
	}
	return os.RemoveAll(w.Dir)
}

// WorkspaceProvider acquires a directory holding the requested revision.
// On error no directory is left behind.
type WorkspaceProvider interface {
	Acquire(ctx context.Context, repositoryURL, branch, commit string) (*Workspace, error)
}

// GitWorkspaceProvider checks out revisions with the git command line.
type GitWorkspaceProvider struct {
	Executor CommandExecutor
	// Root is the parent of all workspaces. Empty means os.TempDir().
	Root string
	Log  *logrus.Logger
}

func (p *GitWorkspaceProvider) Acquire(ctx context.Context, repositoryURL, branch, commit string) (workspace *Workspace, err error) {
	dir, err := newWorkspaceDir(p.Root)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			removePartialWorkspace(p.Log, dir)
		}
	}()

	if err = p.git(ctx, "", "clone", "--single-branch", "--branch", branch, "--", repositoryURL, dir); err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(commit)) > 0 {
		if err = p.git(ctx, dir, "-c", "advice.detachedHead=false", "checkout", "--detach", commit); err != nil {
			return nil, err
		}
	}

	return &Workspace{Dir: dir}, nil
}

func (p *GitWorkspaceProvider) git(ctx context.Context, dir string, args ...string) error {
	result, err := p.Executor.Execute(ctx, dir, "git", args...)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &InfrastructureError{
			Op:  "git " + args[0],
			Err: fmt.Errorf("exit code %d: %s", result.ExitCode, strings.TrimSpace(result.Output)),
		}
	}
	return nil
}

func newWorkspaceDir(root string) (string, error) {
	if len(root) > 0 {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return "", &InfrastructureError{Op: "create workspace root", Err: err}
		}
	}
	dir, err := os.MkdirTemp(root, WORKSPACE_PREFIX)
	if err != nil {
		return "", &InfrastructureError{Op: "create workspace", Err: err}
	}
	return dir, nil
}

func removePartialWorkspace(logger *logrus.Logger, dir string) {
	if err := os.RemoveAll(dir); err != nil && logger != nil {
		logger.WithError(err).WithField("dir", dir).Error("Failed to remove partial workspace")
	}
}

// ListWorkspaces returns every workspace directory under root. Used to
// prune leftovers of runs that died with the process.
func ListWorkspaces(root string) ([]string, error) {
	if len(root) == 0 {
		root = os.TempDir()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), WORKSPACE_PREFIX) {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	return dirs, nil
}
