package remote

import (
	"strings"
	"testing"

	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/internal/types"
)

type fakeRunner struct {
	responses map[string]string
	calls     []string
}

func (f *fakeRunner) Run(dir string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	return f.responses[key], nil
}

func TestStatusLabelMappingIsBijective(t *testing.T) {
	l := NewLabels(config.Default().Labels)

	statuses := []types.SpecStatus{
		types.StatusTodo, types.StatusMergeReady, types.StatusCompleted, types.StatusAbandoned,
	}
	seen := map[string]bool{}
	for _, status := range statuses {
		label := l.ForStatus(status)
		if seen[label] {
			t.Fatalf("label %q produced twice", label)
		}
		seen[label] = true

		back, ok := l.StatusFrom([]string{"unrelated", label})
		if !ok || back != status {
			t.Errorf("StatusFrom(%q) = %q, %v; want %q", label, back, ok, status)
		}
	}
}

func TestStatusFromUnknownLabel(t *testing.T) {
	l := NewLabels(config.Default().Labels)

	if _, ok := l.StatusFrom([]string{"spec-status:wip"}); ok {
		t.Error("unknown status label must not map to a status")
	}
	if _, ok := l.StatusFrom([]string{"spec", "bug"}); ok {
		t.Error("missing status label must not map to a status")
	}
}

func TestForStatusUsesHyphens(t *testing.T) {
	l := NewLabels(config.Default().Labels)
	if got := l.ForStatus(types.StatusMergeReady); got != "spec-status:merge-ready" {
		t.Errorf("ForStatus(merge_ready) = %q", got)
	}
}

func TestIssueTitleRoundTrip(t *testing.T) {
	l := NewLabels(config.Default().Labels)
	title := l.IssueTitle("Fix login flow")
	if title != "[Spec]: Fix login flow" {
		t.Errorf("IssueTitle() = %q", title)
	}
	if got := l.SpecTitle(title); got != "Fix login flow" {
		t.Errorf("SpecTitle() = %q", got)
	}
}

func TestCreateIssueParsesNumberFromURL(t *testing.T) {
	runner := &fakeRunner{responses: map[string]string{
		"issue create --title [Spec]: Fix login --body body --label spec --label spec-status:todo": "https://github.com/acme/app/issues/42",
	}}
	g := &GH{Dir: ".", Runner: runner}

	issue, err := g.CreateIssue("[Spec]: Fix login", "body", []string{"spec", "spec-status:todo"})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if issue.Number != 42 {
		t.Errorf("number = %d, want 42", issue.Number)
	}
	if issue.URL != "https://github.com/acme/app/issues/42" {
		t.Errorf("url = %q", issue.URL)
	}
}

func TestListIssuesParsesLabels(t *testing.T) {
	runner := &fakeRunner{responses: map[string]string{
		"issue list --label spec --state all --limit 500 --json " + issueFields: `[
			{"number": 7, "title": "[Spec]: A", "body": "x", "state": "OPEN",
			 "url": "https://github.com/acme/app/issues/7",
			 "labels": [{"name": "spec"}, {"name": "spec-status:todo"}]}
		]`,
	}}
	g := &GH{Dir: ".", Runner: runner}

	issues, err := g.ListIssues("spec")
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if len(issues[0].Labels) != 2 || issues[0].Labels[1] != "spec-status:todo" {
		t.Errorf("labels = %v", issues[0].Labels)
	}
}

func TestSetStatusLabelSwapsOldLabels(t *testing.T) {
	runner := &fakeRunner{}
	g := &GH{Dir: ".", Runner: runner}

	current := []string{"spec", "spec-status:todo", "bug"}
	if err := g.SetStatusLabel(7, "spec-status:merge-ready", "spec-status:", current); err != nil {
		t.Fatal(err)
	}
	want := "issue edit 7 --add-label spec-status:merge-ready --remove-label spec-status:todo"
	if len(runner.calls) != 1 || runner.calls[0] != want {
		t.Errorf("calls = %v, want [%s]", runner.calls, want)
	}
}

func TestSetAssigneeEditsIssue(t *testing.T) {
	runner := &fakeRunner{}
	g := &GH{Dir: ".", Runner: runner}

	if err := g.SetAssignee(7, "alice"); err != nil {
		t.Fatal(err)
	}
	want := "issue edit 7 --add-assignee alice"
	if len(runner.calls) != 1 || runner.calls[0] != want {
		t.Errorf("calls = %v, want [%s]", runner.calls, want)
	}
}

func TestCloseIssueCarriesComment(t *testing.T) {
	runner := &fakeRunner{}
	g := &GH{Dir: ".", Runner: runner}

	if err := g.CloseIssue(7, "Completed via PR #11."); err != nil {
		t.Fatal(err)
	}
	want := "issue close 7 --comment Completed via PR #11."
	if len(runner.calls) != 1 || runner.calls[0] != want {
		t.Errorf("calls = %v, want [%s]", runner.calls, want)
	}

	runner.calls = nil
	if err := g.CloseIssue(7, ""); err != nil {
		t.Fatal(err)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "issue close 7" {
		t.Errorf("calls = %v", runner.calls)
	}
}

func TestMergePRUsesRebase(t *testing.T) {
	runner := &fakeRunner{}
	g := &GH{Dir: ".", Runner: runner}

	if err := g.MergePR(12); err != nil {
		t.Fatal(err)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "pr merge 12 --rebase" {
		t.Errorf("calls = %v", runner.calls)
	}
}

func TestPRClassificationHelpers(t *testing.T) {
	conflicting := &PullRequest{Mergeable: "CONFLICTING", MergeStateStatus: "DIRTY"}
	if !conflicting.HasConflicts() {
		t.Error("CONFLICTING should classify as conflicted")
	}

	blocked := &PullRequest{Mergeable: "MERGEABLE", MergeStateStatus: "BLOCKED"}
	if !blocked.ChecksFailing() {
		t.Error("BLOCKED should classify as failing checks")
	}

	clean := &PullRequest{Mergeable: "MERGEABLE", MergeStateStatus: "CLEAN"}
	if clean.HasConflicts() || clean.ChecksFailing() {
		t.Error("clean PR should be ready")
	}

	merged := &PullRequest{State: "MERGED"}
	if !merged.Merged() {
		t.Error("merged state not detected")
	}
}

func TestNumberFromURL(t *testing.T) {
	if _, err := numberFromURL("https://github.com/acme/app/issues/"); err == nil {
		t.Error("trailing slash should fail")
	}
	if _, err := numberFromURL("not a url"); err == nil {
		t.Error("junk should fail")
	}
	n, err := numberFromURL("https://github.com/acme/app/pull/9")
	if err != nil || n != 9 {
		t.Errorf("got %d, %v", n, err)
	}
}
