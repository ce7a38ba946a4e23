package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/gitx"
	"github.com/specsync/specsync/internal/store"
	"github.com/specsync/specsync/internal/types"
)

func init() {
	completeCmd := &cobra.Command{
		Use:   "complete [slug]",
		Short: "Open a pull request and mark the spec merge-ready",
		Long: `complete pushes the spec's branch, opens a pull request against the
integration branch, and moves the spec to merge_ready.

Run without arguments from inside a spec's workspace, or name the spec
explicitly. It refuses while the workspace has uncommitted changes or the
spec still has open tasks.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runComplete,
	}
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	slug, err := completeTarget(a, args)
	if err != nil {
		return err
	}
	spec, err := a.store.Get(slug)
	if err != nil {
		return err
	}
	if spec.Status == types.StatusMergeReady {
		fmt.Printf("%s is already merge-ready: %s\n", spec.Slug, spec.PRURL)
		return nil
	}
	if spec.Status != types.StatusTodo {
		return fmt.Errorf("spec %s is %s and cannot be completed", spec.Slug, spec.Status)
	}
	if spec.Branch == "" {
		return fmt.Errorf("spec %s has no workspace; run 'specsync assign %s' first", spec.Slug, spec.Slug)
	}

	// Open tasks block completion; report them all at once.
	tasks, err := a.store.Tasks(spec.Slug)
	if err != nil {
		return err
	}
	var open []string
	for _, task := range tasks {
		open = append(open, task.Incomplete()...)
	}
	if len(open) > 0 {
		fmt.Fprintln(os.Stderr, "Open tasks:")
		for _, title := range open {
			fmt.Fprintf(os.Stderr, "  - %s\n", title)
		}
		return fmt.Errorf("spec %s: %w", spec.Slug, types.ErrTasksIncomplete)
	}

	wsGit := &gitx.Git{Dir: a.workspaces.Path(spec.Slug), Runner: a.git.Runner}
	dirty, err := wsGit.IsDirty()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("workspace %s: %w", a.workspaces.Path(spec.Slug), types.ErrDirtyWorktree)
	}

	if GetDryRun() {
		fmt.Printf("[dry-run] Would push %s and open a PR against %s\n", spec.Branch, a.cfg.Branches.Integration)
		return nil
	}
	if err := a.tracker.Check(); err != nil {
		return err
	}

	if err := wsGit.Push(spec.Branch, true); err != nil {
		return err
	}

	pr, err := a.tracker.PRForBranch(spec.Branch, a.cfg.Branches.Integration)
	if err != nil {
		return err
	}
	if pr == nil {
		body := store.SyncBody(spec.Body)
		if spec.Linked() {
			body = fmt.Sprintf("Closes #%d\n\n%s", spec.IssueID, body)
		}
		pr, err = a.tracker.CreatePR(spec.Branch, a.cfg.Branches.Integration, a.labels.PRTitle(spec.Title), body)
		if err != nil {
			return err
		}
		fmt.Printf("Opened PR #%d: %s\n", pr.Number, pr.URL)
	} else {
		fmt.Printf("Reusing PR #%d: %s\n", pr.Number, pr.URL)
	}

	spec, err = a.store.Update(spec.Slug, func(s *types.Spec) error {
		s.Status = types.StatusMergeReady
		s.PRURL = pr.URL
		return nil
	})
	if err != nil {
		return err
	}

	if spec.Linked() {
		issue, err := a.tracker.GetIssue(spec.IssueID)
		if err != nil {
			return err
		}
		label := a.labels.ForStatus(types.StatusMergeReady)
		if err := a.tracker.SetStatusLabel(spec.IssueID, label, a.labels.StatusPrefix(), issue.Labels); err != nil {
			return err
		}
	}

	fmt.Printf("%s is merge-ready\n", spec.Slug)
	return nil
}

// completeTarget resolves which spec to complete: the argument if given,
// otherwise the workspace containing the working directory.
func completeTarget(a *app, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	ws, err := a.workspaces.ResolveActive(cwd)
	if err != nil {
		return "", err
	}
	if ws == nil {
		return "", fmt.Errorf("not inside a spec workspace; pass the spec slug")
	}
	return ws.Slug, nil
}
