package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specsync/specsync/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "specs"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return s
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Fix Login Flow", "fix_login_flow"},
		{"  spaces   everywhere  ", "spaces_everywhere"},
		{"kebab-case-title", "kebab_case_title"},
		{"Symbols! (removed) #42", "symbols_removed_42"},
		{"already_a_slug", "already_a_slug"},
		{"___", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create("Fix Login Flow")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Slug != "fix_login_flow" {
		t.Errorf("slug = %q", created.Slug)
	}
	if created.Status != types.StatusTodo {
		t.Errorf("status = %q, want todo", created.Status)
	}

	got, err := s.Get("fix_login_flow")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Fix Login Flow" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Body != strings.TrimSpace(DefaultTemplate) {
		t.Errorf("body = %q", got.Body)
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("Fix Login"); err != nil {
		t.Fatal(err)
	}
	_, err := s.Create("fix login")
	if !errors.Is(err, types.ErrSpecExists) {
		t.Errorf("error = %v, want ErrSpecExists", err)
	}
}

func TestResolvePrefix(t *testing.T) {
	s := newTestStore(t)
	for _, title := range []string{"fix login", "fix search", "add export"} {
		if _, err := s.Create(title); err != nil {
			t.Fatal(err)
		}
	}

	slug, _, err := s.Resolve("add")
	if err != nil {
		t.Fatalf("Resolve(add) error = %v", err)
	}
	if slug != "add_export" {
		t.Errorf("slug = %q", slug)
	}

	_, matches, err := s.Resolve("fix")
	if !errors.Is(err, types.ErrAmbiguousSlug) {
		t.Fatalf("error = %v, want ErrAmbiguousSlug", err)
	}
	if len(matches) != 2 {
		t.Errorf("matches = %v", matches)
	}

	if _, _, err := s.Resolve("nope"); !errors.Is(err, types.ErrSpecNotFound) {
		t.Errorf("error = %v, want ErrSpecNotFound", err)
	}
}

func TestResolveExactMatchBeatsPrefix(t *testing.T) {
	s := newTestStore(t)
	for _, title := range []string{"auth", "auth refresh"} {
		if _, err := s.Create(title); err != nil {
			t.Fatal(err)
		}
	}
	slug, _, err := s.Resolve("auth")
	if err != nil {
		t.Fatalf("Resolve(auth) error = %v", err)
	}
	if slug != "auth" {
		t.Errorf("slug = %q, want auth", slug)
	}
}

func TestUpdateRejectsIllegalTransition(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("fix login"); err != nil {
		t.Fatal(err)
	}

	_, err := s.Update("fix_login", func(spec *types.Spec) error {
		spec.Status = types.StatusCompleted
		return nil
	})
	var terr *types.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want TransitionError", err)
	}
	if terr.From != types.StatusTodo || terr.To != types.StatusCompleted {
		t.Errorf("transition = %q -> %q", terr.From, terr.To)
	}

	got, err := s.Get("fix_login")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusTodo {
		t.Errorf("status after rejected update = %q, want todo", got.Status)
	}
}

func TestMergeReadyBlockedByIncompleteTasks(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("fix login"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTask("fix_login", "write tests"); err != nil {
		t.Fatal(err)
	}

	toMergeReady := func(spec *types.Spec) error {
		spec.Status = types.StatusMergeReady
		return nil
	}

	_, err := s.Update("fix_login", toMergeReady)
	if !errors.Is(err, types.ErrTasksIncomplete) {
		t.Fatalf("error = %v, want ErrTasksIncomplete", err)
	}

	if _, err := s.CompleteTask("fix_login", "write_tests"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update("fix_login", toMergeReady); err != nil {
		t.Fatalf("Update() after completing tasks error = %v", err)
	}
}

func TestMoveToCompletedArchivesDirectory(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("fix login"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update("fix_login", func(spec *types.Spec) error {
		spec.Status = types.StatusMergeReady
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	spec, err := s.MoveToCompleted("fix_login")
	if err != nil {
		t.Fatalf("MoveToCompleted() error = %v", err)
	}
	if spec.CompletedAt == "" {
		t.Error("completed_at not set")
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "fix_login")); !os.IsNotExist(err) {
		t.Error("live directory still present after archive")
	}
	if _, err := os.Stat(filepath.Join(s.Dir, completedDir, "fix_login", SpecFile)); err != nil {
		t.Errorf("archived record missing: %v", err)
	}

	// Archived specs stay addressable by slug.
	got, err := s.Get("fix_login")
	if err != nil {
		t.Fatalf("Get() after archive error = %v", err)
	}
	if got.Status != types.StatusCompleted {
		t.Errorf("status = %q", got.Status)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	s := newTestStore(t)
	for _, title := range []string{"one", "two", "three"} {
		if _, err := s.Create(title); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.MoveToAbandoned("two"); err != nil {
		t.Fatal(err)
	}

	live, err := s.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 2 {
		t.Errorf("live specs = %d, want 2", len(live))
	}

	abandoned, err := s.List(types.StatusAbandoned)
	if err != nil {
		t.Fatal(err)
	}
	if len(abandoned) != 1 || abandoned[0].Slug != "two" {
		t.Errorf("abandoned = %v", abandoned)
	}
}

func TestGetByIssueID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("fix login"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update("fix_login", func(spec *types.Spec) error {
		spec.IssueID = 42
		spec.IssueURL = "https://github.com/acme/app/issues/42"
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	spec, err := s.GetByIssueID(42)
	if err != nil {
		t.Fatalf("GetByIssueID() error = %v", err)
	}
	if spec.Slug != "fix_login" {
		t.Errorf("slug = %q", spec.Slug)
	}

	if _, err := s.GetByIssueID(99); !errors.Is(err, types.ErrSpecNotFound) {
		t.Errorf("error = %v, want ErrSpecNotFound", err)
	}

	// The link survives archival.
	if _, err := s.Update("fix_login", func(spec *types.Spec) error {
		spec.Status = types.StatusMergeReady
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MoveToCompleted("fix_login"); err != nil {
		t.Fatal(err)
	}
	spec, err = s.GetByIssueID(42)
	if err != nil {
		t.Fatalf("GetByIssueID() after archive error = %v", err)
	}
	if spec.Status != types.StatusCompleted {
		t.Errorf("status = %q, want completed", spec.Status)
	}
}

func TestTaskOrdering(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("fix login"); err != nil {
		t.Fatal(err)
	}
	for _, title := range []string{"design", "implement", "write tests"} {
		if _, err := s.CreateTask("fix_login", title); err != nil {
			t.Fatal(err)
		}
	}

	tasks, err := s.Tasks("fix_login")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(tasks))
	}
	wantOrder := []string{"design", "implement", "write_tests"}
	for i, want := range wantOrder {
		if tasks[i].Slug != want {
			t.Errorf("tasks[%d] = %q, want %q", i, tasks[i].Slug, want)
		}
		if tasks[i].Order != i+1 {
			t.Errorf("tasks[%d].Order = %d, want %d", i, tasks[i].Order, i+1)
		}
	}
	if tasks[2].Filename != "03_write_tests.md" {
		t.Errorf("filename = %q", tasks[2].Filename)
	}
}

func TestCompleteTaskCompletesSubtasks(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("fix login"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTask("fix_login", "implement"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateTask("fix_login", "implement", func(task *types.Task) error {
		task.Subtasks = []types.Subtask{
			{Title: "handler", Status: types.TaskTodo},
			{Title: "storage", Status: types.TaskTodo},
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	task, err := s.CompleteTask("fix_login", "implement")
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if got := task.Incomplete(); len(got) != 0 {
		t.Errorf("Incomplete() = %v, want empty", got)
	}
	if task.CompletedAt == "" {
		t.Error("completed_at not set")
	}
}

func TestSyncBodyStripsCommentsSection(t *testing.T) {
	body := "## Summary\n\nReal content." + Separator + "### Comment from alice\n\nmirrored text"
	got := SyncBody(body)
	if got != "## Summary\n\nReal content." {
		t.Errorf("SyncBody() = %q", got)
	}
}

func TestSyncHashStableAcrossRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("fix login"); err != nil {
		t.Fatal(err)
	}

	body := "## Summary\n\nLine one.\n\nLine two."
	if _, err := s.UpdateBody("fix_login", body); err != nil {
		t.Fatal(err)
	}
	first, err := s.Get("fix_login")
	if err != nil {
		t.Fatal(err)
	}
	h1 := ComputeHash(SyncBody(first.Body))

	// Rewriting the same body must not change the hash.
	if _, err := s.UpdateBody("fix_login", first.Body); err != nil {
		t.Fatal(err)
	}
	second, err := s.Get("fix_login")
	if err != nil {
		t.Fatal(err)
	}
	h2 := ComputeHash(SyncBody(second.Body))

	if h1 != h2 {
		t.Errorf("hash changed across write/read round trip: %s != %s", h1, h2)
	}
}

func TestHashDiffers(t *testing.T) {
	a := ComputeHash("one")
	b := ComputeHash("two")
	if !HashDiffers(a, b) {
		t.Error("distinct content should differ")
	}
	if HashDiffers(a, a) {
		t.Error("identical content should not differ")
	}
	if !HashDiffers("", a) {
		t.Error("empty hash means never synced and must differ")
	}
}

func TestReadRecordWithoutFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.md")
	if err := os.WriteFile(path, []byte("just text\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	spec := &types.Spec{}
	body, err := readRecord(path, spec)
	if err != nil {
		t.Fatalf("readRecord() error = %v", err)
	}
	if body != "just text" {
		t.Errorf("body = %q", body)
	}
}
