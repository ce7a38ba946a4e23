// Package mergeq drives merge-ready specs through integration: it classifies
// their pull requests, rebase-merges the ready ones, tears down branches and
// workspaces, abandons specs that will not land, and promotes the integration
// branch through staging to production by fast-forward only.
package mergeq

import (
	"errors"
	"fmt"
	"io"

	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/internal/gitx"
	"github.com/specsync/specsync/internal/remote"
	"github.com/specsync/specsync/internal/store"
	"github.com/specsync/specsync/internal/types"
	"github.com/specsync/specsync/internal/workspace"
)

// State classifies one merge candidate.
type State string

const (
	// Ready means the PR is open, mergeable, and its checks pass.
	Ready State = "ready"
	// BlockedConflict means the PR has merge conflicts against integration.
	BlockedConflict State = "blocked_conflict"
	// BlockedChecks means required status checks are failing. Overridable
	// with force.
	BlockedChecks State = "blocked_checks"
	// NoPR means no pull request exists for the spec's branch.
	NoPR State = "no_pr"
	// AlreadyMerged means the PR merged outside a queue run; only the local
	// bookkeeping is left to do.
	AlreadyMerged State = "already_merged"
)

// Candidate is one merge-ready spec and the classification of its PR.
type Candidate struct {
	Spec   *types.Spec
	PR     *remote.PullRequest
	State  State
	Reason string
}

// Result tallies one queue run.
type Result struct {
	Merged  []string
	Skipped []Candidate
}

// Coordinator runs the merge queue for one repository.
type Coordinator struct {
	Store      *store.Store
	Tracker    remote.Tracker
	Labels     *remote.Labels
	Workspaces *workspace.Manager
	Git        *gitx.Git
	Cfg        *config.Config
	DryRun     bool
	Out        io.Writer
}

func (c *Coordinator) logf(format string, args ...any) {
	if c.Out != nil {
		fmt.Fprintf(c.Out, format+"\n", args...)
	}
}

// Candidates classifies every merge-ready spec. It mutates nothing.
func (c *Coordinator) Candidates() ([]Candidate, error) {
	specs, err := c.Store.List(types.StatusMergeReady)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, spec := range specs {
		cand := Candidate{Spec: spec}
		if spec.Branch == "" {
			cand.State = NoPR
			cand.Reason = "spec has no branch"
			out = append(out, cand)
			continue
		}
		pr, err := c.Tracker.PRForBranch(spec.Branch, c.Cfg.Branches.Integration)
		if err != nil {
			return nil, fmt.Errorf("look up PR for %s: %w", spec.Slug, err)
		}
		cand.PR = pr
		switch {
		case pr == nil:
			cand.State = NoPR
			cand.Reason = "no pull request for branch " + spec.Branch
		case pr.Merged():
			cand.State = AlreadyMerged
			cand.Reason = "pull request already merged"
		case pr.HasConflicts():
			cand.State = BlockedConflict
			cand.Reason = "merge conflicts against " + c.Cfg.Branches.Integration
		case pr.ChecksFailing():
			cand.State = BlockedChecks
			cand.Reason = "required checks failing"
		default:
			cand.State = Ready
		}
		out = append(out, cand)
	}
	return out, nil
}

// MergeAll merges every ready candidate and finalizes already-merged ones.
// force additionally merges candidates blocked only on failing checks;
// conflicts are never forced. Blocked specs keep their merge_ready status.
func (c *Coordinator) MergeAll(force bool) (*Result, error) {
	candidates, err := c.Candidates()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, cand := range candidates {
		mergeable := cand.State == Ready ||
			cand.State == AlreadyMerged ||
			(force && cand.State == BlockedChecks)
		if !mergeable {
			c.logf("skip %s: %s", cand.Spec.Slug, cand.Reason)
			result.Skipped = append(result.Skipped, cand)
			continue
		}
		if c.DryRun {
			c.logf("dry run: would merge %s (#%d)", cand.Spec.Slug, cand.PR.Number)
			result.Merged = append(result.Merged, cand.Spec.Slug)
			continue
		}
		if err := c.merge(cand); err != nil {
			return result, fmt.Errorf("merge %s: %w", cand.Spec.Slug, err)
		}
		result.Merged = append(result.Merged, cand.Spec.Slug)
	}
	return result, nil
}

// merge lands one candidate and cleans up everything attached to it.
func (c *Coordinator) merge(cand Candidate) error {
	spec := cand.Spec

	if cand.State != AlreadyMerged {
		if err := c.Tracker.MergePR(cand.PR.Number); err != nil {
			return err
		}
		c.logf("merged #%d for %s", cand.PR.Number, spec.Slug)
	}

	if c.Git.RemoteBranchExists(spec.Branch) {
		if err := c.Git.DeleteRemoteBranch(spec.Branch); err != nil {
			return err
		}
	}
	if err := c.Workspaces.Remove(spec.Slug, true); err != nil {
		return err
	}

	if _, err := c.Store.MoveToCompleted(spec.Slug); err != nil {
		return err
	}
	if spec.Linked() {
		issue, err := c.Tracker.GetIssue(spec.IssueID)
		if err != nil {
			return err
		}
		completed := c.Labels.ForStatus(types.StatusCompleted)
		if err := c.Tracker.SetStatusLabel(spec.IssueID, completed, c.Labels.StatusPrefix(), issue.Labels); err != nil {
			return err
		}
		comment := fmt.Sprintf("Completed via PR #%d.", cand.PR.Number)
		if err := c.Tracker.CloseIssue(spec.IssueID, comment); err != nil {
			return err
		}
		c.logf("closed issue #%d", spec.IssueID)
	}
	return nil
}

// PromoteStaging and PromoteProduction name the two promote targets.
const (
	PromoteStaging    = "staging"
	PromoteProduction = "production"
)

// Promote fast-forwards the promotion chain up to target. "staging" advances
// staging to the integration tip and stops there; "production" continues and
// advances production to the staging tip. It refuses to run on a dirty tree,
// and a non-fast-forward anywhere aborts the cascade with nothing
// force-pushed.
func (c *Coordinator) Promote(target string) error {
	var steps []struct{ target, source string }
	switch target {
	case PromoteStaging:
		steps = []struct{ target, source string }{
			{c.Cfg.Branches.Staging, c.Cfg.Branches.Integration},
		}
	case PromoteProduction:
		steps = []struct{ target, source string }{
			{c.Cfg.Branches.Staging, c.Cfg.Branches.Integration},
			{c.Cfg.Branches.Production, c.Cfg.Branches.Staging},
		}
	default:
		return fmt.Errorf("promote: unknown target %q (want %s or %s)", target, PromoteStaging, PromoteProduction)
	}

	dirty, err := c.Git.IsDirty()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("promote: %w", types.ErrDirtyWorktree)
	}
	if err := c.Git.Fetch(); err != nil {
		return err
	}

	original, err := c.Git.CurrentBranch()
	if err != nil {
		return err
	}

	for _, step := range steps {
		if c.DryRun {
			c.logf("dry run: would fast-forward %s to %s", step.target, step.source)
			continue
		}
		if err := c.promoteStep(step.target, step.source); err != nil {
			_ = c.Git.Checkout(original)
			return err
		}
	}

	if err := c.Git.Checkout(original); err != nil {
		return err
	}
	return nil
}

func (c *Coordinator) promoteStep(target, source string) error {
	if err := c.Git.Checkout(target); err != nil {
		return err
	}
	if err := c.Git.MergeFastForward(source); err != nil {
		if errors.Is(err, types.ErrNotFastForward) {
			return fmt.Errorf("promote %s: %s has diverged from %s: %w", target, target, source, types.ErrNotFastForward)
		}
		return err
	}
	if err := c.Git.Push(target, false); err != nil {
		return err
	}
	sha, err := c.Git.RevParse("HEAD")
	if err != nil {
		return err
	}
	c.logf("promoted %s to %s tip (%s)", target, source, sha)
	return nil
}

// Abandon gives a spec up without merging: its open pull request is closed,
// its branches and workspace are torn down, the record is archived, and the
// linked issue is closed with a comment. withRemote false skips the tracker
// and remote-branch calls so abandonment still works offline.
func (c *Coordinator) Abandon(slug string, withRemote bool) (*types.Spec, error) {
	spec, err := c.Store.Get(slug)
	if err != nil {
		return nil, err
	}

	if withRemote && spec.Branch != "" {
		pr, err := c.Tracker.PRForBranch(spec.Branch, c.Cfg.Branches.Integration)
		if err != nil {
			return nil, fmt.Errorf("look up PR for %s: %w", spec.Slug, err)
		}
		if pr != nil && pr.State == "OPEN" {
			if err := c.Tracker.ClosePR(pr.Number); err != nil {
				return nil, err
			}
			c.logf("closed PR #%d", pr.Number)
		}
		if c.Git.RemoteBranchExists(spec.Branch) {
			if err := c.Git.DeleteRemoteBranch(spec.Branch); err != nil {
				return nil, err
			}
		}
	}

	if err := c.Workspaces.Remove(spec.Slug, true); err != nil {
		return nil, err
	}
	archived, err := c.Store.MoveToAbandoned(spec.Slug)
	if err != nil {
		return nil, err
	}

	if withRemote && archived.Linked() {
		issue, err := c.Tracker.GetIssue(archived.IssueID)
		if err != nil {
			return nil, err
		}
		label := c.Labels.ForStatus(types.StatusAbandoned)
		if err := c.Tracker.SetStatusLabel(archived.IssueID, label, c.Labels.StatusPrefix(), issue.Labels); err != nil {
			return nil, err
		}
		if err := c.Tracker.CloseIssue(archived.IssueID, fmt.Sprintf("Spec %s abandoned without merging.", archived.Slug)); err != nil {
			return nil, err
		}
		c.logf("closed issue #%d", archived.IssueID)
	}
	return archived, nil
}
