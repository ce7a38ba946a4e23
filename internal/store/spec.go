// Package store reads and writes spec and task records as markdown files
// with YAML frontmatter.
//
// Layout:
//
//	<dir>/<slug>/spec.md              todo, merge_ready
//	<dir>/<slug>/tasks/NN_<slug>.md   tasks, ordered by filename prefix
//	<dir>/completed/<slug>/           archived after merge
//	<dir>/abandoned/<slug>/           archived without merge
//
// Updates are read-modify-write against the file with no locking: each spec
// has at most one live workspace, so concurrent mutation of the same spec is
// a caller error, not a condition the store defends against.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/specsync/specsync/internal/types"
)

const (
	completedDir = "completed"
	abandonedDir = "abandoned"

	// SpecFile is the primary record file inside each spec directory.
	SpecFile = "spec.md"
)

// DefaultTemplate seeds the body of a newly created spec.
const DefaultTemplate = `## Summary

## Approach

## Out of scope
`

// Store is the file-backed entity store rooted at a specs directory.
type Store struct {
	// Dir is the root specs directory (e.g. .specsync/specs).
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Init creates the directory layout.
func (s *Store) Init() error {
	for _, d := range []string{s.Dir, filepath.Join(s.Dir, completedDir), filepath.Join(s.Dir, abandonedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create specs dir %s: %w", d, err)
		}
	}
	return nil
}

// specDir locates the directory of an existing spec across the live and
// archived locations, or "" when the spec does not exist.
func (s *Store) specDir(slug string) string {
	for _, base := range []string{s.Dir, filepath.Join(s.Dir, completedDir), filepath.Join(s.Dir, abandonedDir)} {
		dir := filepath.Join(base, slug)
		if _, err := os.Stat(filepath.Join(dir, SpecFile)); err == nil {
			return dir
		}
	}
	return ""
}

// SpecPath returns the path of the spec's record file, whether or not it
// exists yet. New specs land in the live root.
func (s *Store) SpecPath(slug string) string {
	if dir := s.specDir(slug); dir != "" {
		return filepath.Join(dir, SpecFile)
	}
	return filepath.Join(s.Dir, slug, SpecFile)
}

// Create writes a new spec record in status todo and returns it.
func (s *Store) Create(title string) (*types.Spec, error) {
	slug := Slugify(title)
	if slug == "" {
		return nil, fmt.Errorf("title %q yields an empty slug", title)
	}
	if s.specDir(slug) != "" {
		return nil, fmt.Errorf("spec %q: %w", slug, types.ErrSpecExists)
	}

	now := types.NowISO()
	spec := &types.Spec{
		Slug:      slug,
		Title:     title,
		Status:    types.StatusTodo,
		CreatedAt: now,
		UpdatedAt: now,
		Body:      DefaultTemplate,
	}
	if err := writeRecord(s.SpecPath(slug), spec, spec.Body); err != nil {
		return nil, fmt.Errorf("write spec %q: %w", slug, err)
	}
	return spec, nil
}

// Resolve expands a slug or unique slug prefix to a full slug, git-hash
// style. An exact match always wins. Returns the candidate slugs alongside
// ErrAmbiguousSlug so callers can print them.
func (s *Store) Resolve(prefix string) (string, []string, error) {
	if prefix == "" {
		return "", nil, types.ErrSpecNotFound
	}
	if s.specDir(prefix) != "" {
		return prefix, []string{prefix}, nil
	}

	var matches []string
	for _, base := range []string{s.Dir, filepath.Join(s.Dir, completedDir), filepath.Join(s.Dir, abandonedDir)} {
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if !entry.IsDir() || name == completedDir || name == abandonedDir {
				continue
			}
			if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
				if _, err := os.Stat(filepath.Join(base, name, SpecFile)); err == nil {
					matches = append(matches, name)
				}
			}
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 1:
		return matches[0], matches, nil
	case 0:
		return "", nil, fmt.Errorf("spec %q: %w", prefix, types.ErrSpecNotFound)
	default:
		return "", matches, fmt.Errorf("spec %q matches %d specs: %w", prefix, len(matches), types.ErrAmbiguousSlug)
	}
}

// Get reads a spec by slug or unique prefix.
func (s *Store) Get(slugOrPrefix string) (*types.Spec, error) {
	slug, _, err := s.Resolve(slugOrPrefix)
	if err != nil {
		return nil, err
	}
	return s.read(slug)
}

func (s *Store) read(slug string) (*types.Spec, error) {
	dir := s.specDir(slug)
	if dir == "" {
		return nil, fmt.Errorf("spec %q: %w", slug, types.ErrSpecNotFound)
	}
	spec := &types.Spec{}
	body, err := readRecord(filepath.Join(dir, SpecFile), spec)
	if err != nil {
		return nil, fmt.Errorf("read spec %q: %w", slug, err)
	}
	spec.Slug = slug
	spec.Body = body
	return spec, nil
}

// GetByIssueID finds the spec linked to a tracker issue, archives included.
// A link survives archival, so a completed or abandoned spec still claims its
// issue number.
func (s *Store) GetByIssueID(issueID int) (*types.Spec, error) {
	for _, filter := range []types.SpecStatus{"", types.StatusCompleted, types.StatusAbandoned} {
		specs, err := s.List(filter)
		if err != nil {
			return nil, err
		}
		for _, spec := range specs {
			if spec.IssueID == issueID {
				return spec, nil
			}
		}
	}
	return nil, fmt.Errorf("issue #%d: %w", issueID, types.ErrSpecNotFound)
}

// List returns specs sorted by updated_at, newest first. An empty filter
// lists all live specs; StatusCompleted and StatusAbandoned list the
// corresponding archives.
func (s *Store) List(filter types.SpecStatus) ([]*types.Spec, error) {
	base := s.Dir
	statusFilter := filter
	switch filter {
	case types.StatusCompleted:
		base = filepath.Join(s.Dir, completedDir)
		statusFilter = ""
	case types.StatusAbandoned:
		base = filepath.Join(s.Dir, abandonedDir)
		statusFilter = ""
	}

	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list specs: %w", err)
	}

	var specs []*types.Spec
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == completedDir || name == abandonedDir {
			continue
		}
		spec := &types.Spec{}
		body, err := readRecord(filepath.Join(base, name, SpecFile), spec)
		if err != nil {
			continue
		}
		spec.Slug = name
		spec.Body = body
		if statusFilter != "" && spec.Status != statusFilter {
			continue
		}
		specs = append(specs, spec)
	}

	sort.Slice(specs, func(i, j int) bool { return specs[i].UpdatedAt > specs[j].UpdatedAt })
	return specs, nil
}

// Update applies mutate to the spec record and writes it back, bumping
// updated_at. A status change is validated against the transition graph, and
// a change to merge_ready is rejected while the spec owns incomplete tasks.
func (s *Store) Update(slug string, mutate func(*types.Spec) error) (*types.Spec, error) {
	spec, err := s.Get(slug)
	if err != nil {
		return nil, err
	}
	before := spec.Status

	if err := mutate(spec); err != nil {
		return nil, err
	}

	if spec.Status != before {
		if err := types.ValidateTransition(before, spec.Status); err != nil {
			return nil, err
		}
		if spec.Status == types.StatusMergeReady {
			if err := s.ensureTasksComplete(spec.Slug); err != nil {
				return nil, err
			}
		}
		if spec.Status == types.StatusCompleted && spec.CompletedAt == "" {
			spec.CompletedAt = types.NowISO()
		}
	}

	spec.UpdatedAt = types.NowISO()
	if err := writeRecord(s.SpecPath(spec.Slug), spec, spec.Body); err != nil {
		return nil, fmt.Errorf("write spec %q: %w", spec.Slug, err)
	}
	return spec, nil
}

// UpdateBody replaces the record body, bumping updated_at.
func (s *Store) UpdateBody(slug, body string) (*types.Spec, error) {
	return s.Update(slug, func(spec *types.Spec) error {
		spec.Body = body
		return nil
	})
}

// MarkSynced stores the content hashes observed during a successful sync.
func (s *Store) MarkSynced(slug, localHash, remoteHash string) error {
	_, err := s.Update(slug, func(spec *types.Spec) error {
		spec.LastSyncedAt = types.NowISO()
		spec.LocalContentHash = localHash
		spec.RemoteContentHash = remoteHash
		return nil
	})
	return err
}

// MoveToCompleted transitions the spec to completed and moves its directory
// into the completed archive. Archiving a spec archives its tasks with it.
func (s *Store) MoveToCompleted(slug string) (*types.Spec, error) {
	return s.archive(slug, types.StatusCompleted, completedDir)
}

// MoveToAbandoned transitions the spec to abandoned and moves its directory
// into the abandoned archive.
func (s *Store) MoveToAbandoned(slug string) (*types.Spec, error) {
	return s.archive(slug, types.StatusAbandoned, abandonedDir)
}

func (s *Store) archive(slug string, status types.SpecStatus, subdir string) (*types.Spec, error) {
	spec, err := s.Update(slug, func(spec *types.Spec) error {
		spec.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	src := s.specDir(spec.Slug)
	dst := filepath.Join(s.Dir, subdir, spec.Slug)
	if src == dst {
		return spec, nil
	}
	if _, err := os.Stat(dst); err == nil {
		return nil, fmt.Errorf("spec %q already archived in %s/", spec.Slug, subdir)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}
	if err := os.Rename(src, dst); err != nil {
		return nil, fmt.Errorf("archive spec %q: %w", spec.Slug, err)
	}
	return spec, nil
}

// Delete removes the spec directory including its tasks.
func (s *Store) Delete(slug string) error {
	dir := s.specDir(slug)
	if dir == "" {
		return fmt.Errorf("spec %q: %w", slug, types.ErrSpecNotFound)
	}
	return os.RemoveAll(dir)
}

func (s *Store) ensureTasksComplete(slug string) error {
	tasks, err := s.Tasks(slug)
	if err != nil {
		return err
	}
	var open []string
	for _, task := range tasks {
		open = append(open, task.Incomplete()...)
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: %d open item(s), first: %q", types.ErrTasksIncomplete, len(open), open[0])
	}
	return nil
}
