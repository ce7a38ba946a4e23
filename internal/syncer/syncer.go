// Package syncer reconciles local spec records with their tracker issues.
// Reconciliation is hash-based: each record stores the content hashes
// observed at its last sync, and the delta against those decides direction.
// When both sides changed, the pair is a conflict and is surfaced, never
// auto-resolved.
package syncer

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/internal/gitx"
	"github.com/specsync/specsync/internal/remote"
	"github.com/specsync/specsync/internal/store"
	"github.com/specsync/specsync/internal/types"
)

// DriftKind classifies one divergence between a record and its issue.
type DriftKind string

const (
	// DriftLocal means only the local record changed since the last sync.
	DriftLocal DriftKind = "local"
	// DriftRemote means only the tracker issue changed since the last sync.
	DriftRemote DriftKind = "remote"
	// DriftConflict means both sides changed; resolution is manual.
	DriftConflict DriftKind = "conflict"
	// DriftStatus means the status label disagrees with the record, or the
	// issue carries no recognizable status label.
	DriftStatus DriftKind = "status"
)

// Drift is one detected divergence.
type Drift struct {
	Slug    string
	IssueID int
	Kind    DriftKind
	Detail  string
}

func (d Drift) String() string {
	return fmt.Sprintf("%-10s %s (#%d): %s", d.Kind, d.Slug, d.IssueID, d.Detail)
}

// Plan is the set of actions one sync run will take, computed before any
// mutation so --dry-run can print it verbatim.
type Plan struct {
	// CreateRemote lists slugs of local specs with no tracker issue yet.
	CreateRemote []string
	// CreateLocal lists tracker issues with no local record yet.
	CreateLocal []remote.Issue
	// PushBody lists slugs whose local edits are pushed to the issue.
	PushBody []string
	// PullBody lists slugs whose issue edits are pulled into the record.
	PullBody []string
	// PushStatus lists slugs whose status label is rewritten from the record.
	PushStatus []string
	// Conflicts lists pairs where both sides changed.
	Conflicts []Drift
	// Drifts lists every divergence found, conflicts included.
	Drifts []Drift
}

// Empty reports whether the plan would take no action.
func (p *Plan) Empty() bool {
	return len(p.CreateRemote) == 0 && len(p.CreateLocal) == 0 &&
		len(p.PushBody) == 0 && len(p.PullBody) == 0 && len(p.PushStatus) == 0
}

// Engine wires the store, tracker, and repository together for sync runs.
type Engine struct {
	Store   *store.Store
	Tracker remote.Tracker
	Labels  *remote.Labels
	Git     *gitx.Git
	Cfg     *config.Config
	// RecordsPath is the repo-relative path of the record directory, staged
	// and committed after each mutating run.
	RecordsPath string
	DryRun      bool
	Out         io.Writer
}

func (e *Engine) logf(format string, args ...any) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format+"\n", args...)
	}
}

// BuildPlan compares every local spec against the tracker and returns the
// actions needed to reconcile them. It mutates nothing.
func (e *Engine) BuildPlan() (*Plan, error) {
	specs, err := e.Store.List("")
	if err != nil {
		return nil, err
	}
	issues, err := e.Tracker.ListIssues(e.Labels.Marker())
	if err != nil {
		return nil, err
	}

	byNumber := make(map[int]remote.Issue, len(issues))
	for _, issue := range issues {
		byNumber[issue.Number] = issue
	}
	linked := make(map[int]bool)

	plan := &Plan{}
	for _, spec := range specs {
		if !spec.Linked() {
			plan.CreateRemote = append(plan.CreateRemote, spec.Slug)
			continue
		}
		linked[spec.IssueID] = true

		issue, ok := byNumber[spec.IssueID]
		if !ok {
			plan.Drifts = append(plan.Drifts, Drift{
				Slug: spec.Slug, IssueID: spec.IssueID, Kind: DriftRemote,
				Detail: "linked issue not found on tracker",
			})
			continue
		}
		e.planPair(plan, spec, issue)
	}

	for _, issue := range issues {
		if linked[issue.Number] || !e.Labels.IsSpecIssue(issue.Labels) {
			continue
		}
		// A link survives archival; an archived spec's issue must not come
		// back as a fresh record.
		if _, err := e.Store.GetByIssueID(issue.Number); err == nil {
			continue
		}
		plan.CreateLocal = append(plan.CreateLocal, issue)
	}
	return plan, nil
}

// planPair decides the sync direction for one linked record/issue pair.
func (e *Engine) planPair(plan *Plan, spec *types.Spec, issue remote.Issue) {
	localHash := store.ComputeHash(store.SyncBody(spec.Body))
	remoteHash := store.ComputeHash(strings.TrimSpace(issue.Body))

	localChanged := store.HashDiffers(localHash, spec.LocalContentHash)
	remoteChanged := store.HashDiffers(remoteHash, spec.RemoteContentHash)

	switch {
	case localChanged && remoteChanged:
		d := Drift{
			Slug: spec.Slug, IssueID: issue.Number, Kind: DriftConflict,
			Detail: "record and issue both changed since last sync",
		}
		plan.Conflicts = append(plan.Conflicts, d)
		plan.Drifts = append(plan.Drifts, d)
	case localChanged:
		plan.PushBody = append(plan.PushBody, spec.Slug)
		plan.Drifts = append(plan.Drifts, Drift{
			Slug: spec.Slug, IssueID: issue.Number, Kind: DriftLocal,
			Detail: "record changed, pushing to issue",
		})
	case remoteChanged:
		plan.PullBody = append(plan.PullBody, spec.Slug)
		plan.Drifts = append(plan.Drifts, Drift{
			Slug: spec.Slug, IssueID: issue.Number, Kind: DriftRemote,
			Detail: "issue changed, pulling into record",
		})
	}

	// The local record is the source of truth for status; the label mirrors
	// it. An unreadable label is drift either way.
	remoteStatus, ok := e.Labels.StatusFrom(issue.Labels)
	if !ok || remoteStatus != spec.Status {
		plan.PushStatus = append(plan.PushStatus, spec.Slug)
		detail := fmt.Sprintf("status label %q does not match record status %q",
			statusLabelOf(e.Labels, issue.Labels), spec.Status)
		plan.Drifts = append(plan.Drifts, Drift{
			Slug: spec.Slug, IssueID: issue.Number, Kind: DriftStatus, Detail: detail,
		})
	}
}

func statusLabelOf(l *remote.Labels, labels []string) string {
	for _, label := range labels {
		if strings.HasPrefix(label, l.StatusPrefix()) {
			return label
		}
	}
	return ""
}

// Sync runs one full reconciliation: fetch and fast-forward the current
// branch, build the plan, execute it, and commit the record changes. With
// DryRun set, the plan is printed and nothing is mutated.
func (e *Engine) Sync() (*Plan, error) {
	if err := e.Tracker.Check(); err != nil {
		return nil, err
	}
	if err := e.Git.Fetch(); err != nil {
		return nil, err
	}
	branch, err := e.Git.CurrentBranch()
	if err != nil {
		return nil, err
	}
	if e.Git.RemoteBranchExists(branch) {
		// A divergent branch is fatal for sync: reconciling against stale
		// records would push stale content to the tracker.
		if err := e.Git.PullFastForward(branch); err != nil {
			return nil, err
		}
	}

	plan, err := e.BuildPlan()
	if err != nil {
		return nil, err
	}
	for _, d := range plan.Drifts {
		e.logf("drift: %s", d)
	}
	if e.DryRun {
		e.logf("dry run: %d create, %d adopt, %d push, %d pull, %d relabel, %d conflict",
			len(plan.CreateRemote), len(plan.CreateLocal), len(plan.PushBody),
			len(plan.PullBody), len(plan.PushStatus), len(plan.Conflicts))
		return plan, nil
	}

	if err := e.Execute(plan); err != nil {
		return plan, err
	}
	if err := e.commitRecords(branch); err != nil {
		return plan, err
	}
	return plan, nil
}

// Execute applies a plan. Conflicts are skipped; everything else is pushed or
// pulled and the stored hashes are advanced to the post-sync state.
func (e *Engine) Execute(plan *Plan) error {
	for _, slug := range plan.CreateRemote {
		if err := e.createRemote(slug); err != nil {
			return err
		}
	}
	for _, issue := range plan.CreateLocal {
		if err := e.adoptIssue(issue); err != nil {
			return err
		}
	}
	for _, slug := range plan.PushBody {
		if err := e.pushBody(slug); err != nil {
			return err
		}
	}
	for _, slug := range plan.PullBody {
		if err := e.pullBody(slug); err != nil {
			return err
		}
	}
	for _, slug := range plan.PushStatus {
		if err := e.pushStatus(slug); err != nil {
			return err
		}
	}
	for _, d := range plan.Conflicts {
		e.logf("conflict: %s needs manual resolution, skipped", d.Slug)
	}
	return nil
}

// createRemote opens a tracker issue for an unlinked spec and links it.
func (e *Engine) createRemote(slug string) error {
	spec, err := e.Store.Get(slug)
	if err != nil {
		return err
	}
	body := store.SyncBody(spec.Body)
	issue, err := e.Tracker.CreateIssue(
		e.Labels.IssueTitle(spec.Title), body,
		[]string{e.Labels.Marker(), e.Labels.ForStatus(spec.Status)})
	if err != nil {
		return fmt.Errorf("create issue for %q: %w", slug, err)
	}

	if _, err := e.Store.Update(slug, func(s *types.Spec) error {
		s.IssueID = issue.Number
		s.IssueURL = issue.URL
		return nil
	}); err != nil {
		return err
	}
	e.logf("created issue #%d for %s", issue.Number, slug)
	return e.markSynced(slug, body, body)
}

// adoptIssue creates a local record for a spec-marker issue created directly
// on the tracker.
func (e *Engine) adoptIssue(issue remote.Issue) error {
	title := e.Labels.SpecTitle(issue.Title)
	spec, err := e.Store.Create(title)
	if err != nil {
		return fmt.Errorf("adopt issue #%d: %w", issue.Number, err)
	}

	body := strings.TrimSpace(issue.Body)
	if _, err := e.Store.Update(spec.Slug, func(s *types.Spec) error {
		s.IssueID = issue.Number
		s.IssueURL = issue.URL
		s.Body = body
		return nil
	}); err != nil {
		return err
	}
	// The adopted record immediately mirrors its status back so the issue
	// gains a well-formed label set.
	if err := e.pushStatus(spec.Slug); err != nil {
		return err
	}
	e.logf("adopted issue #%d as %s", issue.Number, spec.Slug)
	return e.markSynced(spec.Slug, body, body)
}

// pushBody writes the record's sync body to the issue.
func (e *Engine) pushBody(slug string) error {
	spec, err := e.Store.Get(slug)
	if err != nil {
		return err
	}
	body := store.SyncBody(spec.Body)
	if err := e.Tracker.UpdateIssue(spec.IssueID, e.Labels.IssueTitle(spec.Title), body); err != nil {
		return fmt.Errorf("push %q to issue #%d: %w", slug, spec.IssueID, err)
	}
	e.logf("pushed %s to issue #%d", slug, spec.IssueID)
	return e.markSynced(slug, body, body)
}

// pullBody replaces the record's sync body with the issue body, preserving
// any mirrored comments section, and refreshes the comment mirror.
func (e *Engine) pullBody(slug string) error {
	spec, err := e.Store.Get(slug)
	if err != nil {
		return err
	}
	issue, err := e.Tracker.GetIssue(spec.IssueID)
	if err != nil {
		return fmt.Errorf("pull %q from issue #%d: %w", slug, spec.IssueID, err)
	}

	body := strings.TrimSpace(issue.Body)
	comments, err := e.Tracker.ListComments(spec.IssueID)
	if err != nil {
		return err
	}
	full := body
	if section := renderComments(comments); section != "" {
		full = body + store.Separator + section
	}

	if _, err := e.Store.Update(slug, func(s *types.Spec) error {
		s.Title = e.Labels.SpecTitle(issue.Title)
		s.Body = full
		return nil
	}); err != nil {
		return err
	}
	e.logf("pulled issue #%d into %s", spec.IssueID, slug)
	return e.markSynced(slug, body, body)
}

// pushStatus rewrites the issue's status label from the record.
func (e *Engine) pushStatus(slug string) error {
	spec, err := e.Store.Get(slug)
	if err != nil {
		return err
	}
	issue, err := e.Tracker.GetIssue(spec.IssueID)
	if err != nil {
		return err
	}
	want := e.Labels.ForStatus(spec.Status)
	if err := e.Tracker.SetStatusLabel(spec.IssueID, want, e.Labels.StatusPrefix(), issue.Labels); err != nil {
		return fmt.Errorf("relabel issue #%d: %w", spec.IssueID, err)
	}
	e.logf("set issue #%d label %s", spec.IssueID, want)
	return nil
}

// markSynced stores the post-sync hashes. After a successful push or pull
// both sides hold the same content, so both hashes come from it.
func (e *Engine) markSynced(slug, localBody, remoteBody string) error {
	return e.Store.MarkSynced(slug, store.ComputeHash(localBody), store.ComputeHash(remoteBody))
}

// renderComments formats tracker comments for the mirrored section below the
// record separator.
func renderComments(comments []remote.Comment) string {
	if len(comments) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range comments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s (%s)\n\n%s", c.Author, c.CreatedAt, strings.TrimSpace(c.Body))
	}
	return b.String()
}

// commitRecords stages, commits, and pushes record changes produced by the
// run. Each run gets a unique id so tracker activity can be correlated with
// commits.
func (e *Engine) commitRecords(branch string) error {
	if err := e.Git.AddAll(e.RecordsPath); err != nil {
		return err
	}
	runID := uuid.NewString()[:8]
	committed, err := e.Git.Commit(fmt.Sprintf("specsync: sync run %s", runID))
	if err != nil {
		return err
	}
	if !committed {
		return nil
	}
	e.logf("committed record changes (run %s)", runID)
	if e.Git.RemoteBranchExists(branch) {
		if err := e.Git.Push(branch, false); err != nil {
			return err
		}
	}
	return nil
}
