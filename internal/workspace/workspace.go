// Package workspace creates and tears down isolated per-spec worktrees.
// Each spec gets one worktree in a sibling directory of the main checkout,
// on a feature branch cut from the integration branch tip.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/internal/gitx"
	"github.com/specsync/specsync/internal/types"
)

// Manager creates, lists, and removes spec workspaces for one repository.
type Manager struct {
	Git      *gitx.Git
	Cfg      *config.Config
	RepoRoot string
	// User owns created branches; part of the derived branch name.
	User string
}

// NewManager returns a Manager for the repository at repoRoot.
func NewManager(g *gitx.Git, cfg *config.Config, repoRoot, user string) *Manager {
	return &Manager{Git: g, Cfg: cfg, RepoRoot: repoRoot, User: user}
}

// WorktreesDir is the sibling directory holding all spec worktrees, e.g.
// /home/u/app -> /home/u/app-worktrees.
func (m *Manager) WorktreesDir() string {
	return filepath.Join(filepath.Dir(m.RepoRoot), filepath.Base(m.RepoRoot)+"-worktrees")
}

// Path returns the worktree directory for a spec.
func (m *Manager) Path(slug string) string {
	return filepath.Join(m.WorktreesDir(), slug)
}

// Branch returns the feature branch name for a spec.
func (m *Manager) Branch(slug string) string {
	return m.Cfg.FeatureBranch(m.User, slug)
}

// Create cuts a feature branch from the integration tip and checks it out in
// a fresh worktree. Fails with types.ErrWorkspaceExists when either the
// directory or the branch already exists.
func (m *Manager) Create(slug string) (*types.Workspace, error) {
	branch := m.Branch(slug)
	path := m.Path(slug)

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("workspace %s: %w", path, types.ErrWorkspaceExists)
	}
	if m.Git.BranchExists(branch) {
		return nil, fmt.Errorf("branch %s: %w", branch, types.ErrWorkspaceExists)
	}

	if err := os.MkdirAll(m.WorktreesDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create worktrees dir: %w", err)
	}
	if err := m.Git.CreateBranch(branch, m.Cfg.Branches.Integration); err != nil {
		return nil, err
	}
	if err := m.Git.WorktreeAdd(path, branch, false); err != nil {
		// Roll the branch back so a retry starts clean.
		_ = m.Git.DeleteBranch(branch, true)
		return nil, err
	}

	if err := m.linkSharedPaths(path); err != nil {
		return nil, err
	}
	return &types.Workspace{Slug: slug, Branch: branch, Path: path}, nil
}

// linkSharedPaths symlinks each configured shared path from the main checkout
// into the worktree. Paths already present in the worktree are left alone.
func (m *Manager) linkSharedPaths(worktree string) error {
	for _, rel := range m.Cfg.Workspace.SharedPaths {
		src := filepath.Join(m.RepoRoot, rel)
		dst := filepath.Join(worktree, rel)
		if _, err := os.Lstat(dst); err == nil {
			continue
		}
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("link shared path %s: %w", rel, err)
		}
		if err := os.Symlink(src, dst); err != nil {
			return fmt.Errorf("link shared path %s: %w", rel, err)
		}
	}
	return nil
}

// Remove tears down a spec's workspace: directory first, then branch. Both
// halves are idempotent, so a partially removed workspace can be removed
// again.
func (m *Manager) Remove(slug string, force bool) error {
	path := m.Path(slug)
	branch := m.Branch(slug)

	if _, err := os.Stat(path); err == nil {
		if err := m.Git.WorktreeRemove(path, force); err != nil {
			// The worktree may be unknown to git (stale admin files); fall
			// back to deleting the directory and pruning.
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return err
			}
		}
	}
	if err := m.Git.WorktreePrune(); err != nil {
		return err
	}

	if m.Git.BranchExists(branch) {
		if err := m.Git.DeleteBranch(branch, force); err != nil {
			return err
		}
	}
	return nil
}

// List returns the spec workspaces of this repository, derived from the live
// worktree list. The main checkout is excluded.
func (m *Manager) List() ([]types.Workspace, error) {
	infos, err := m.Git.Worktrees()
	if err != nil {
		return nil, err
	}
	root := m.WorktreesDir() + string(filepath.Separator)

	var workspaces []types.Workspace
	for _, info := range infos {
		if info.Main || !strings.HasPrefix(info.Path, root) {
			continue
		}
		workspaces = append(workspaces, types.Workspace{
			Slug:   filepath.Base(info.Path),
			Branch: info.Branch,
			Path:   info.Path,
		})
	}
	return workspaces, nil
}

// ResolveActive returns the workspace containing dir, or nil when dir is not
// inside any spec worktree. This is how "the active spec" is derived; it is
// never stored.
func (m *Manager) ResolveActive(dir string) (*types.Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	workspaces, err := m.List()
	if err != nil {
		return nil, err
	}
	for i := range workspaces {
		ws := workspaces[i]
		if abs == ws.Path || strings.HasPrefix(abs, ws.Path+string(filepath.Separator)) {
			return &ws, nil
		}
	}
	return nil, nil
}
