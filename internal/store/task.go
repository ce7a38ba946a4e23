package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/specsync/specsync/internal/types"
)

const tasksDir = "tasks"

// taskFilename builds the ordered record name, e.g. "02_write_tests.md".
func taskFilename(order int, slug string) string {
	return fmt.Sprintf("%02d_%s.md", order, slug)
}

// parseTaskFilename splits "NN_<slug>.md" into its order and slug. Files that
// do not match the pattern are skipped by the lister.
func parseTaskFilename(name string) (int, string, bool) {
	base := strings.TrimSuffix(name, ".md")
	if base == name {
		return 0, "", false
	}
	idx := strings.Index(base, "_")
	if idx <= 0 {
		return 0, "", false
	}
	order, err := strconv.Atoi(base[:idx])
	if err != nil {
		return 0, "", false
	}
	return order, base[idx+1:], true
}

func (s *Store) tasksDir(specSlug string) (string, error) {
	dir := s.specDir(specSlug)
	if dir == "" {
		return "", fmt.Errorf("spec %q: %w", specSlug, types.ErrSpecNotFound)
	}
	return filepath.Join(dir, tasksDir), nil
}

// CreateTask appends a task to the spec, taking the next free order slot.
func (s *Store) CreateTask(specSlug, title string) (*types.Task, error) {
	slug, _, err := s.Resolve(specSlug)
	if err != nil {
		return nil, err
	}
	taskSlug := Slugify(title)
	if taskSlug == "" {
		return nil, fmt.Errorf("title %q yields an empty slug", title)
	}

	tasks, err := s.Tasks(slug)
	if err != nil {
		return nil, err
	}
	order := 1
	for _, t := range tasks {
		if t.Slug == taskSlug {
			return nil, fmt.Errorf("task %q in spec %q: %w", taskSlug, slug, types.ErrTaskExists)
		}
		if t.Order >= order {
			order = t.Order + 1
		}
	}

	now := types.NowISO()
	task := &types.Task{
		SpecSlug:  slug,
		Slug:      taskSlug,
		Order:     order,
		Filename:  taskFilename(order, taskSlug),
		Title:     title,
		Status:    types.TaskTodo,
		CreatedAt: now,
		UpdatedAt: now,
	}

	dir, err := s.tasksDir(slug)
	if err != nil {
		return nil, err
	}
	if err := writeRecord(filepath.Join(dir, task.Filename), task, task.Body); err != nil {
		return nil, fmt.Errorf("write task %q: %w", taskSlug, err)
	}
	return task, nil
}

// Tasks lists the spec's tasks in order.
func (s *Store) Tasks(specSlug string) ([]*types.Task, error) {
	slug, _, err := s.Resolve(specSlug)
	if err != nil {
		return nil, err
	}
	dir, err := s.tasksDir(slug)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks of %q: %w", slug, err)
	}

	var tasks []*types.Task
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		order, taskSlug, ok := parseTaskFilename(entry.Name())
		if !ok {
			continue
		}
		task := &types.Task{}
		body, err := readRecord(filepath.Join(dir, entry.Name()), task)
		if err != nil {
			return nil, fmt.Errorf("read task %s: %w", entry.Name(), err)
		}
		task.SpecSlug = slug
		task.Slug = taskSlug
		task.Order = order
		task.Filename = entry.Name()
		task.Body = body
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
	return tasks, nil
}

// GetTask reads one task by its slug or unique slug prefix.
func (s *Store) GetTask(specSlug, taskSlug string) (*types.Task, error) {
	tasks, err := s.Tasks(specSlug)
	if err != nil {
		return nil, err
	}

	var matches []*types.Task
	for _, task := range tasks {
		if task.Slug == taskSlug {
			return task, nil
		}
		if strings.HasPrefix(task.Slug, taskSlug) {
			matches = append(matches, task)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("task %q: %w", taskSlug, types.ErrTaskNotFound)
	default:
		return nil, fmt.Errorf("task %q matches %d tasks: %w", taskSlug, len(matches), types.ErrAmbiguousSlug)
	}
}

// UpdateTask applies mutate to the task record and writes it back.
func (s *Store) UpdateTask(specSlug, taskSlug string, mutate func(*types.Task) error) (*types.Task, error) {
	task, err := s.GetTask(specSlug, taskSlug)
	if err != nil {
		return nil, err
	}
	if err := mutate(task); err != nil {
		return nil, err
	}

	task.UpdatedAt = types.NowISO()
	dir, err := s.tasksDir(task.SpecSlug)
	if err != nil {
		return nil, err
	}
	if err := writeRecord(filepath.Join(dir, task.Filename), task, task.Body); err != nil {
		return nil, fmt.Errorf("write task %q: %w", task.Slug, err)
	}
	return task, nil
}

// CompleteTask marks the task and all its subtasks completed.
func (s *Store) CompleteTask(specSlug, taskSlug string) (*types.Task, error) {
	return s.UpdateTask(specSlug, taskSlug, func(task *types.Task) error {
		task.Status = types.TaskCompleted
		if task.CompletedAt == "" {
			task.CompletedAt = types.NowISO()
		}
		for i := range task.Subtasks {
			task.Subtasks[i].Status = types.TaskCompleted
		}
		return nil
	})
}
