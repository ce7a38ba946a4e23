package types

import "errors"

// Sentinel errors shared across the lifecycle packages. Using sentinels
// allows callers to match with errors.Is for reliable error handling.
var (
	// ErrSpecNotFound is returned when a slug resolves to no spec record.
	ErrSpecNotFound = errors.New("spec not found")

	// ErrSpecExists is returned when creating a spec whose slug is taken.
	ErrSpecExists = errors.New("spec already exists")

	// ErrAmbiguousSlug is returned when a slug prefix matches several specs.
	ErrAmbiguousSlug = errors.New("slug prefix is ambiguous")

	// ErrTaskNotFound is returned when a task lookup misses.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskExists is returned when creating a task whose filename is taken.
	ErrTaskExists = errors.New("task already exists")

	// ErrTasksIncomplete is returned when a spec cannot become merge_ready
	// because it still owns incomplete tasks.
	ErrTasksIncomplete = errors.New("spec has incomplete tasks")

	// ErrWorkspaceExists is returned when a spec already has a live workspace.
	ErrWorkspaceExists = errors.New("workspace already exists")

	// ErrNotFastForward is returned when a fetch or merge would require a
	// merge commit. Never resolved automatically.
	ErrNotFastForward = errors.New("not a fast-forward")

	// ErrDirtyWorktree is returned when an operation requires a clean tree.
	ErrDirtyWorktree = errors.New("working tree has uncommitted changes")

	// ErrRemoteUnavailable wraps tracker transport/auth failures so callers
	// can distinguish "nothing changed" from "sync may be incomplete".
	ErrRemoteUnavailable = errors.New("remote tracker unavailable")
)
