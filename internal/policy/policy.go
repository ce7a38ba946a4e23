// Package policy enforces the branch merge topology: feature work funnels
// into the integration branch, only integration (or a hotfix) reaches
// staging, and only staging reaches production. The rules exist both as a
// pure predicate and as a generated git hook that blocks violating merges at
// commit time.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/internal/gitx"
)

// Policy is the merge topology for one repository.
type Policy struct {
	Branches config.BranchConfig
}

// New returns the policy for the configured branch topology.
func New(branches config.BranchConfig) *Policy {
	return &Policy{Branches: branches}
}

// Allowed reports whether merging source into target respects the topology.
// Branches outside the topology (feature branches) accept any merge, so a
// feature branch can be refreshed from integration at will.
func (p *Policy) Allowed(source, target string) bool {
	switch target {
	case p.Branches.Integration:
		return true
	case p.Branches.Staging:
		return source == p.Branches.Integration || strings.HasPrefix(source, p.Branches.HotfixPrefix)
	case p.Branches.Production:
		return source == p.Branches.Staging
	default:
		return true
	}
}

// Explain returns a short human-readable rule statement for a denied merge.
func (p *Policy) Explain(target string) string {
	switch target {
	case p.Branches.Staging:
		return fmt.Sprintf("only %s or %s* may merge into %s",
			p.Branches.Integration, p.Branches.HotfixPrefix, p.Branches.Staging)
	case p.Branches.Production:
		return fmt.Sprintf("only %s may merge into %s", p.Branches.Staging, p.Branches.Production)
	default:
		return "merge allowed"
	}
}

// HookName is the git hook the policy installs into.
const HookName = "pre-merge-commit"

// HookScript renders the self-contained hook. The branch names and rule
// statements are baked in at install time so the hook works without specsync
// on PATH.
func (p *Policy) HookScript() string {
	return fmt.Sprintf(`#!/bin/sh
# Installed by specsync. Blocks merges that violate the branch topology:
#   anything        -> %[1]s
#   %[1]s, %[3]s*   -> %[2]s
#   %[2]s           -> %[4]s

target=$(git rev-parse --abbrev-ref HEAD)
source=$(git name-rev --name-only MERGE_HEAD 2>/dev/null | sed 's,^remotes/origin/,,')

case "$target" in
%[2]s)
    case "$source" in
    %[1]s|%[3]s*) exit 0 ;;
    *)
        echo "blocked: %[5]s (got $source)" >&2
        exit 1
        ;;
    esac
    ;;
%[4]s)
    case "$source" in
    %[2]s) exit 0 ;;
    *)
        echo "blocked: %[6]s (got $source)" >&2
        exit 1
        ;;
    esac
    ;;
esac
exit 0
`, p.Branches.Integration, p.Branches.Staging, p.Branches.HotfixPrefix, p.Branches.Production,
		p.Explain(p.Branches.Staging), p.Explain(p.Branches.Production))
}

// Install writes the hook into the repository and disables fast-forward
// merges so every merge runs the hook. Any existing hook of the same name is
// overwritten.
func (p *Policy) Install(g *gitx.Git, repoRoot string) error {
	hooksDir := filepath.Join(repoRoot, ".git", "hooks")
	if dir := g.ConfigGet("core.hooksPath"); dir != "" {
		if filepath.IsAbs(dir) {
			hooksDir = dir
		} else {
			hooksDir = filepath.Join(repoRoot, dir)
		}
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return fmt.Errorf("create hooks dir: %w", err)
	}
	path := filepath.Join(hooksDir, HookName)
	if err := os.WriteFile(path, []byte(p.HookScript()), 0o755); err != nil {
		return fmt.Errorf("install %s hook: %w", HookName, err)
	}

	// Without this, fast-forward merges skip pre-merge-commit entirely.
	if err := g.ConfigSet("merge.ff", "false"); err != nil {
		return err
	}
	return nil
}
