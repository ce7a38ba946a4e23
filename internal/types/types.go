// Package types defines the data structures shared across the specsync
// lifecycle: specs, tasks, workspaces, and their status machines.
package types

import (
	"fmt"
	"time"
)

// SpecStatus is the lifecycle state of a spec. The "active" state is
// intentionally absent: whether a spec is active is derived from the caller's
// git branch or worktree, never stored.
type SpecStatus string

const (
	// StatusTodo is the initial state of every spec.
	StatusTodo SpecStatus = "todo"

	// StatusMergeReady means local work is complete and a pull request has
	// been opened against the integration branch.
	StatusMergeReady SpecStatus = "merge_ready"

	// StatusCompleted means the spec's pull request has been merged.
	StatusCompleted SpecStatus = "completed"

	// StatusAbandoned means the spec was given up without merging.
	StatusAbandoned SpecStatus = "abandoned"
)

// TaskStatus is the state of a single task owned by a spec.
type TaskStatus string

const (
	TaskTodo      TaskStatus = "todo"
	TaskCompleted TaskStatus = "completed"
)

// ValidSpecStatus reports whether s is one of the four known spec statuses.
func ValidSpecStatus(s SpecStatus) bool {
	switch s {
	case StatusTodo, StatusMergeReady, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

// specTransitions is the allowed status graph. Transitions are monotonic:
// todo -> merge_ready -> completed, with abandoned reachable from todo or
// merge_ready only. There is no path back from completed or abandoned.
var specTransitions = map[SpecStatus][]SpecStatus{
	StatusTodo:       {StatusMergeReady, StatusAbandoned},
	StatusMergeReady: {StatusCompleted, StatusAbandoned},
	StatusCompleted:  {},
	StatusAbandoned:  {},
}

// CanTransition reports whether a spec may move from one status to another.
// A no-op transition (from == to) is always allowed.
func CanTransition(from, to SpecStatus) bool {
	if from == to {
		return true
	}
	for _, next := range specTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError naming the illegal pair, or
// nil when the transition is allowed.
func ValidateTransition(from, to SpecStatus) error {
	if !ValidSpecStatus(to) {
		return &TransitionError{From: from, To: to, Reason: "unknown status"}
	}
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to, Reason: "status transitions are one-directional"}
	}
	return nil
}

// Subtask is a lightweight task embedded in a task's frontmatter.
type Subtask struct {
	Title  string     `yaml:"title"`
	Status TaskStatus `yaml:"status"`
}

// Spec is a tracked unit of feature work. Field names mirror the YAML
// frontmatter of the spec.md record file.
type Spec struct {
	// Slug is the unique, filesystem-safe identifier. Derived from the
	// record's directory name, not stored in frontmatter.
	Slug string `yaml:"-"`

	Title      string     `yaml:"title"`
	Status     SpecStatus `yaml:"status"`
	AssignedTo string     `yaml:"assigned_to,omitempty"`

	// Remote tracker reference. Zero IssueID means the spec has never been
	// pushed to the tracker.
	IssueID  int    `yaml:"issue_id,omitempty"`
	IssueURL string `yaml:"issue_url,omitempty"`

	// Branch is the feature branch bound to this spec's workspace, derived
	// deterministically from the owning user and the slug.
	Branch string `yaml:"branch,omitempty"`
	PRURL  string `yaml:"pr_url,omitempty"`

	CreatedAt   string `yaml:"created_at"`
	UpdatedAt   string `yaml:"updated_at"`
	CompletedAt string `yaml:"completed_at,omitempty"`

	// Sync state: hashes of the body as last pushed/pulled, used for drift
	// detection. Empty means never synced.
	LastSyncedAt      string `yaml:"last_synced_at,omitempty"`
	LocalContentHash  string `yaml:"local_content_hash,omitempty"`
	RemoteContentHash string `yaml:"remote_content_hash,omitempty"`

	// Body is the free markdown text below the frontmatter.
	Body string `yaml:"-"`
}

// Linked reports whether the spec has a remote tracker item.
func (s *Spec) Linked() bool { return s.IssueID > 0 }

// Task is a unit of work owned by exactly one spec.
type Task struct {
	SpecSlug string `yaml:"-"`
	Slug     string `yaml:"-"`
	// Order is the ordering index parsed from the NN_ filename prefix.
	Order    int    `yaml:"-"`
	Filename string `yaml:"-"`

	Title    string     `yaml:"title"`
	Status   TaskStatus `yaml:"status"`
	Subtasks []Subtask  `yaml:"subtasks,omitempty"`

	CreatedAt   string `yaml:"created_at"`
	UpdatedAt   string `yaml:"updated_at"`
	CompletedAt string `yaml:"completed_at,omitempty"`

	Body string `yaml:"-"`
}

// Incomplete returns the titles of the task's own entry plus any subtasks
// that are not completed. An empty result means the task is fully done.
func (t *Task) Incomplete() []string {
	var open []string
	if t.Status != TaskCompleted {
		open = append(open, t.Title)
	}
	for _, st := range t.Subtasks {
		if st.Status != TaskCompleted {
			open = append(open, st.Title)
		}
	}
	return open
}

// Workspace is an isolated (branch, directory) pair bound to one spec.
type Workspace struct {
	Slug   string
	Branch string
	Path   string
}

// NowISO returns the current local time in the ISO-8601 format used by all
// record timestamps.
func NowISO() string {
	return time.Now().Format("2006-01-02T15:04:05")
}

// TransitionError reports an illegal spec status transition.
type TransitionError struct {
	From   SpecStatus
	To     SpecStatus
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %q -> %q: %s", e.From, e.To, e.Reason)
}
