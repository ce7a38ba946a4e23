// Package gitx wraps the git CLI behind a narrow interface so the sync and
// merge logic never shells out directly. There is one real implementation
// (CLI) and tests substitute a recording fake.
package gitx

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/specsync/specsync/internal/types"
)

// Runner executes a git command in a directory and returns combined stdout.
type Runner interface {
	Run(dir string, args ...string) (string, error)
}

// RunError carries the failing git invocation and its output.
type RunError struct {
	Args   []string
	Stdout string
	Stderr string
	Err    error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	for _, s := range []string{e.Stderr, e.Stdout} {
		if s = strings.TrimSpace(s); s != "" {
			msg += ": " + s
		}
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// CLI is the real Runner backed by the git executable.
type CLI struct{}

// Run executes git with the given arguments in dir.
func (CLI) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", &RunError{Args: args, Stdout: string(out), Stderr: stderr.String(), Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}

// Git exposes the handful of repository operations the lifecycle needs.
type Git struct {
	Dir    string
	Runner Runner
}

// New returns a Git bound to the repository at dir using the real CLI runner.
func New(dir string) *Git {
	return &Git{Dir: dir, Runner: CLI{}}
}

// RepoRoot returns the top-level directory of the repository containing dir.
func (g *Git) RepoRoot() (string, error) {
	out, err := g.Runner.Run(g.Dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("resolve repo root: %w", err)
	}
	return out, nil
}

// CurrentBranch returns the checked-out branch name, or an error in a
// detached-HEAD state.
func (g *Git) CurrentBranch() (string, error) {
	out, err := g.Runner.Run(g.Dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if out == "HEAD" {
		return "", fmt.Errorf("detached HEAD, no current branch")
	}
	return out, nil
}

// IsDirty reports whether the working tree has uncommitted changes.
func (g *Git) IsDirty() (bool, error) {
	out, err := g.Runner.Run(g.Dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// Fetch updates remote-tracking refs from origin, pruning deleted branches.
func (g *Git) Fetch() error {
	if _, err := g.Runner.Run(g.Dir, "fetch", "--prune", "origin"); err != nil {
		return fmt.Errorf("fetch origin: %w", err)
	}
	return nil
}

// PullFastForward pulls branch from origin, fast-forward only. A divergent
// history surfaces as types.ErrNotFastForward; it is never auto-merged.
func (g *Git) PullFastForward(branch string) error {
	if _, err := g.Runner.Run(g.Dir, "pull", "--ff-only", "origin", branch); err != nil {
		return fmt.Errorf("pull %s: %w: %w", branch, types.ErrNotFastForward, err)
	}
	return nil
}

// MergeFastForward advances the current branch to ref without creating a
// merge commit. Fails with types.ErrNotFastForward when history diverged.
func (g *Git) MergeFastForward(ref string) error {
	if _, err := g.Runner.Run(g.Dir, "merge", "--ff-only", ref); err != nil {
		return fmt.Errorf("merge %s: %w: %w", ref, types.ErrNotFastForward, err)
	}
	return nil
}

// Checkout switches the working tree to branch.
func (g *Git) Checkout(branch string) error {
	if _, err := g.Runner.Run(g.Dir, "checkout", branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	return nil
}

// CreateBranch creates branch at the tip of from without checking it out.
func (g *Git) CreateBranch(branch, from string) error {
	if _, err := g.Runner.Run(g.Dir, "branch", branch, from); err != nil {
		return fmt.Errorf("create branch %s from %s: %w", branch, from, err)
	}
	return nil
}

// DeleteBranch removes a local branch. force uses -D.
func (g *Git) DeleteBranch(branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	if _, err := g.Runner.Run(g.Dir, "branch", flag, branch); err != nil {
		return fmt.Errorf("delete branch %s: %w", branch, err)
	}
	return nil
}

// BranchExists reports whether a local branch exists.
func (g *Git) BranchExists(branch string) bool {
	_, err := g.Runner.Run(g.Dir, "rev-parse", "--verify", "refs/heads/"+branch)
	return err == nil
}

// RemoteBranchExists reports whether origin has the branch.
func (g *Git) RemoteBranchExists(branch string) bool {
	_, err := g.Runner.Run(g.Dir, "rev-parse", "--verify", "refs/remotes/origin/"+branch)
	return err == nil
}

// ListBranches returns local branch names matching the glob pattern.
func (g *Git) ListBranches(pattern string) ([]string, error) {
	out, err := g.Runner.Run(g.Dir, "branch", "--list", pattern, "--format", "%(refname:short)")
	if err != nil {
		return nil, fmt.Errorf("list branches %s: %w", pattern, err)
	}
	return splitLines(out), nil
}

// ListRemoteBranches returns origin branch names (without the origin/ prefix)
// matching the glob pattern.
func (g *Git) ListRemoteBranches(pattern string) ([]string, error) {
	out, err := g.Runner.Run(g.Dir, "branch", "-r", "--list", "origin/"+pattern, "--format", "%(refname:short)")
	if err != nil {
		return nil, fmt.Errorf("list remote branches %s: %w", pattern, err)
	}
	var branches []string
	for _, line := range splitLines(out) {
		branches = append(branches, strings.TrimPrefix(line, "origin/"))
	}
	return branches, nil
}

// Push pushes branch to origin, optionally setting the upstream.
func (g *Git) Push(branch string, setUpstream bool) error {
	args := []string{"push", "origin", branch}
	if setUpstream {
		args = append(args, "--set-upstream")
	}
	if _, err := g.Runner.Run(g.Dir, args...); err != nil {
		return fmt.Errorf("push %s: %w", branch, err)
	}
	return nil
}

// DeleteRemoteBranch removes branch from origin.
func (g *Git) DeleteRemoteBranch(branch string) error {
	if _, err := g.Runner.Run(g.Dir, "push", "origin", "--delete", branch); err != nil {
		return fmt.Errorf("delete remote branch %s: %w", branch, err)
	}
	return nil
}

// AddAll stages every change under path (repo-relative; "." for everything).
func (g *Git) AddAll(path string) error {
	if _, err := g.Runner.Run(g.Dir, "add", "--all", path); err != nil {
		return fmt.Errorf("add %s: %w", path, err)
	}
	return nil
}

// Commit records staged changes. Returns (false, nil) when there was nothing
// to commit, which callers treat as success.
func (g *Git) Commit(message string) (bool, error) {
	_, err := g.Runner.Run(g.Dir, "commit", "-m", message)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "nothing to commit") {
			return false, nil
		}
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// RevParse resolves a ref to a commit SHA.
func (g *Git) RevParse(ref string) (string, error) {
	out, err := g.Runner.Run(g.Dir, "rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("rev-parse %s: %w", ref, err)
	}
	return out, nil
}

// ConfigSet writes a repository-local configuration value.
func (g *Git) ConfigSet(key, value string) error {
	if _, err := g.Runner.Run(g.Dir, "config", key, value); err != nil {
		return fmt.Errorf("config %s: %w", key, err)
	}
	return nil
}

// ConfigGet reads a configuration value; missing keys return "".
func (g *Git) ConfigGet(key string) string {
	out, err := g.Runner.Run(g.Dir, "config", "--get", key)
	if err != nil {
		return ""
	}
	return out
}

// RemoteURL returns the origin URL, or "" when no origin is configured.
func (g *Git) RemoteURL() string {
	out, err := g.Runner.Run(g.Dir, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	return out
}

// WorktreeAdd creates a worktree at path on branch, creating the branch from
// the current HEAD when createBranch is set.
func (g *Git) WorktreeAdd(path, branch string, createBranch bool) error {
	args := []string{"worktree", "add"}
	if createBranch {
		args = append(args, "-b", branch, path)
	} else {
		args = append(args, path, branch)
	}
	if _, err := g.Runner.Run(g.Dir, args...); err != nil {
		return fmt.Errorf("worktree add %s: %w", path, err)
	}
	return nil
}

// WorktreeRemove removes the worktree at path. force discards local changes.
func (g *Git) WorktreeRemove(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	if _, err := g.Runner.Run(g.Dir, args...); err != nil {
		return fmt.Errorf("worktree remove %s: %w", path, err)
	}
	return nil
}

// WorktreePrune drops stale worktree administrative files.
func (g *Git) WorktreePrune() error {
	if _, err := g.Runner.Run(g.Dir, "worktree", "prune"); err != nil {
		return fmt.Errorf("worktree prune: %w", err)
	}
	return nil
}

// WorktreeInfo describes one entry of `git worktree list --porcelain`.
type WorktreeInfo struct {
	Path   string
	Branch string
	Main   bool
}

// Worktrees lists all worktrees of the repository, main checkout first.
func (g *Git) Worktrees() ([]WorktreeInfo, error) {
	out, err := g.Runner.Run(g.Dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("worktree list: %w", err)
	}
	return ParseWorktreeList(out), nil
}

// ParseWorktreeList parses `git worktree list --porcelain` output. The first
// listed worktree is the main checkout.
func ParseWorktreeList(output string) []WorktreeInfo {
	var infos []WorktreeInfo
	var current *WorktreeInfo
	flush := func() {
		if current != nil {
			infos = append(infos, *current)
			current = nil
		}
	}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &WorktreeInfo{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "branch "):
			if current != nil {
				current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
			}
		case line == "":
			flush()
		}
	}
	flush()
	if len(infos) > 0 {
		infos[0].Main = true
	}
	return infos
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return lines
}
