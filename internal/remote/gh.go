package remote

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/specsync/specsync/internal/types"
)

// Runner executes a gh invocation in a directory and returns stdout. gh reads
// the repository from the directory's git remote.
type Runner interface {
	Run(dir string, args ...string) (string, error)
}

// CLI is the real Runner backed by the gh executable.
type CLI struct{}

// Run executes gh with the given arguments in dir.
func (CLI) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("gh", args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), msg)
	}
	return strings.TrimSpace(string(out)), nil
}

// GH implements Tracker against the gh CLI.
type GH struct {
	Dir    string
	Runner Runner
}

// NewGH returns a Tracker for the repository at dir using the real gh CLI.
func NewGH(dir string) *GH {
	return &GH{Dir: dir, Runner: CLI{}}
}

// Check verifies gh exists and is authenticated. Failures wrap
// types.ErrRemoteUnavailable so callers can degrade to local-only mode.
func (g *GH) Check() error {
	if _, err := exec.LookPath("gh"); err != nil {
		return fmt.Errorf("%w: gh not installed", types.ErrRemoteUnavailable)
	}
	if _, err := g.Runner.Run(g.Dir, "auth", "status"); err != nil {
		return fmt.Errorf("%w: %v", types.ErrRemoteUnavailable, err)
	}
	return nil
}

// EnsureLabels creates each label, updating it in place when it already
// exists.
func (g *GH) EnsureLabels(labels ...string) error {
	for _, label := range labels {
		if _, err := g.Runner.Run(g.Dir, "label", "create", label, "--force", "--color", "ededed"); err != nil {
			return fmt.Errorf("ensure label %q: %w", label, err)
		}
	}
	return nil
}

// CreateIssue opens a tracker issue and returns it. gh issue create prints
// only the URL, so the number is parsed from its last path segment.
func (g *GH) CreateIssue(title, body string, labels []string) (*Issue, error) {
	args := []string{"issue", "create", "--title", title, "--body", body}
	for _, label := range labels {
		args = append(args, "--label", label)
	}
	out, err := g.Runner.Run(g.Dir, args...)
	if err != nil {
		return nil, err
	}

	url := lastLine(out)
	number, err := numberFromURL(url)
	if err != nil {
		return nil, err
	}
	return &Issue{Number: number, Title: title, Body: body, State: "OPEN", URL: url, Labels: labels}, nil
}

// ghIssue is the gh --json shape for issues.
type ghIssue struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"`
	URL       string `json:"url"`
	UpdatedAt string `json:"updatedAt"`
	Labels    []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

func (gi *ghIssue) toIssue() Issue {
	issue := Issue{
		Number:    gi.Number,
		Title:     gi.Title,
		Body:      gi.Body,
		State:     gi.State,
		URL:       gi.URL,
		UpdatedAt: gi.UpdatedAt,
	}
	for _, l := range gi.Labels {
		issue.Labels = append(issue.Labels, l.Name)
	}
	return issue
}

const issueFields = "number,title,body,state,url,updatedAt,labels"

// GetIssue fetches one issue by number.
func (g *GH) GetIssue(number int) (*Issue, error) {
	out, err := g.Runner.Run(g.Dir, "issue", "view", strconv.Itoa(number), "--json", issueFields)
	if err != nil {
		return nil, err
	}
	var gi ghIssue
	if err := json.Unmarshal([]byte(out), &gi); err != nil {
		return nil, fmt.Errorf("parse issue #%d: %w", number, err)
	}
	issue := gi.toIssue()
	return &issue, nil
}

// ListIssues returns all issues carrying the label, open and closed.
func (g *GH) ListIssues(label string) ([]Issue, error) {
	out, err := g.Runner.Run(g.Dir, "issue", "list",
		"--label", label, "--state", "all", "--limit", "500", "--json", issueFields)
	if err != nil {
		return nil, err
	}
	var raw []ghIssue
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse issue list: %w", err)
	}
	issues := make([]Issue, 0, len(raw))
	for i := range raw {
		issues = append(issues, raw[i].toIssue())
	}
	return issues, nil
}

// UpdateIssue rewrites an issue's title and body.
func (g *GH) UpdateIssue(number int, title, body string) error {
	_, err := g.Runner.Run(g.Dir, "issue", "edit", strconv.Itoa(number),
		"--title", title, "--body", body)
	return err
}

// SetStatusLabel swaps the status label: every current label under
// removePrefix is removed, then add is attached. A single edit keeps the
// exchange atomic on the tracker side.
func (g *GH) SetStatusLabel(number int, add string, removePrefix string, current []string) error {
	args := []string{"issue", "edit", strconv.Itoa(number), "--add-label", add}
	for _, label := range current {
		if label != add && strings.HasPrefix(label, removePrefix) {
			args = append(args, "--remove-label", label)
		}
	}
	_, err := g.Runner.Run(g.Dir, args...)
	return err
}

// SetAssignee assigns the issue to a user.
func (g *GH) SetAssignee(number int, assignee string) error {
	_, err := g.Runner.Run(g.Dir, "issue", "edit", strconv.Itoa(number), "--add-assignee", assignee)
	return err
}

// CloseIssue closes the issue, leaving a closing comment when one is given.
func (g *GH) CloseIssue(number int, comment string) error {
	args := []string{"issue", "close", strconv.Itoa(number)}
	if comment != "" {
		args = append(args, "--comment", comment)
	}
	_, err := g.Runner.Run(g.Dir, args...)
	return err
}

// ListComments returns the issue's comments in creation order.
func (g *GH) ListComments(number int) ([]Comment, error) {
	out, err := g.Runner.Run(g.Dir, "issue", "view", strconv.Itoa(number), "--json", "comments")
	if err != nil {
		return nil, err
	}
	var raw struct {
		Comments []struct {
			Author struct {
				Login string `json:"login"`
			} `json:"author"`
			Body      string `json:"body"`
			CreatedAt string `json:"createdAt"`
		} `json:"comments"`
	}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse comments of #%d: %w", number, err)
	}
	comments := make([]Comment, 0, len(raw.Comments))
	for _, c := range raw.Comments {
		comments = append(comments, Comment{Author: c.Author.Login, Body: c.Body, CreatedAt: c.CreatedAt})
	}
	return comments, nil
}

// ghPR is the gh --json shape for pull requests.
type ghPR struct {
	Number           int    `json:"number"`
	Title            string `json:"title"`
	URL              string `json:"url"`
	State            string `json:"state"`
	HeadRefName      string `json:"headRefName"`
	BaseRefName      string `json:"baseRefName"`
	Mergeable        string `json:"mergeable"`
	MergeStateStatus string `json:"mergeStateStatus"`
}

func (gp *ghPR) toPR() PullRequest {
	return PullRequest{
		Number:           gp.Number,
		Title:            gp.Title,
		URL:              gp.URL,
		State:            gp.State,
		HeadRef:          gp.HeadRefName,
		BaseRef:          gp.BaseRefName,
		Mergeable:        gp.Mergeable,
		MergeStateStatus: gp.MergeStateStatus,
	}
}

const prFields = "number,title,url,state,headRefName,baseRefName,mergeable,mergeStateStatus"

// CreatePR opens a pull request from head into base.
func (g *GH) CreatePR(head, base, title, body string) (*PullRequest, error) {
	out, err := g.Runner.Run(g.Dir, "pr", "create",
		"--head", head, "--base", base, "--title", title, "--body", body)
	if err != nil {
		return nil, err
	}
	url := lastLine(out)
	number, err := numberFromURL(url)
	if err != nil {
		return nil, err
	}
	return &PullRequest{Number: number, Title: title, URL: url, State: "OPEN", HeadRef: head, BaseRef: base}, nil
}

// PRForBranch returns the open PR from head into base, or nil when none
// exists.
func (g *GH) PRForBranch(head, base string) (*PullRequest, error) {
	out, err := g.Runner.Run(g.Dir, "pr", "list",
		"--head", head, "--base", base, "--state", "all", "--json", prFields)
	if err != nil {
		return nil, err
	}
	var raw []ghPR
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse pr list: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	pr := raw[0].toPR()
	return &pr, nil
}

// MergePR rebase-merges the PR so integration history stays linear. Branch
// deletion is handled separately by the workspace teardown.
func (g *GH) MergePR(number int) error {
	_, err := g.Runner.Run(g.Dir, "pr", "merge", strconv.Itoa(number), "--rebase")
	return err
}

// ClosePR closes the PR without merging.
func (g *GH) ClosePR(number int) error {
	_, err := g.Runner.Run(g.Dir, "pr", "close", strconv.Itoa(number))
	return err
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// numberFromURL extracts the trailing item number from a tracker URL like
// https://github.com/acme/app/issues/42.
func numberFromURL(url string) (int, error) {
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return 0, fmt.Errorf("no item number in %q", url)
	}
	number, err := strconv.Atoi(url[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("no item number in %q", url)
	}
	return number, nil
}
