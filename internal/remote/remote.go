// Package remote talks to the GitHub issue tracker and pull request API by
// shelling out to the gh CLI, which handles auth, host selection, and paging.
// The Tracker interface is the only thing the sync and merge layers see;
// tests substitute an in-memory fake.
package remote

// Issue mirrors the tracker fields the sync engine cares about.
type Issue struct {
	Number    int
	Title     string
	Body      string
	State     string
	URL       string
	Labels    []string
	UpdatedAt string
}

// PullRequest mirrors the PR fields the merge queue classifies on.
type PullRequest struct {
	Number           int
	Title            string
	URL              string
	State            string
	HeadRef          string
	BaseRef          string
	Mergeable        string
	MergeStateStatus string
}

// Comment is one tracker comment, mirrored below the record separator.
type Comment struct {
	Author    string
	Body      string
	CreatedAt string
}

// HasConflicts reports whether the tracker marked the PR unmergeable.
func (pr *PullRequest) HasConflicts() bool {
	return pr.Mergeable == "CONFLICTING"
}

// ChecksFailing reports whether required status checks block the merge.
func (pr *PullRequest) ChecksFailing() bool {
	switch pr.MergeStateStatus {
	case "BLOCKED", "UNSTABLE":
		return true
	}
	return false
}

// Merged reports whether the PR has already been merged.
func (pr *PullRequest) Merged() bool { return pr.State == "MERGED" }

// Tracker is the narrow remote surface used by the sync engine and merge
// queue.
type Tracker interface {
	// Check verifies the tracker is reachable and authenticated; failures
	// wrap types.ErrRemoteUnavailable.
	Check() error

	EnsureLabels(labels ...string) error

	CreateIssue(title, body string, labels []string) (*Issue, error)
	GetIssue(number int) (*Issue, error)
	ListIssues(label string) ([]Issue, error)
	UpdateIssue(number int, title, body string) error
	SetStatusLabel(number int, add string, removePrefix string, current []string) error
	SetAssignee(number int, assignee string) error
	CloseIssue(number int, comment string) error
	ListComments(number int) ([]Comment, error)

	CreatePR(head, base, title, body string) (*PullRequest, error)
	PRForBranch(head, base string) (*PullRequest, error)
	MergePR(number int) error
	ClosePR(number int) error
}

var _ Tracker = (*GH)(nil)
