package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/types"
)

func init() {
	assignCmd := &cobra.Command{
		Use:   "assign <slug>",
		Short: "Open an isolated workspace for a spec",
		Long: `assign cuts a feature branch from the integration tip and checks it out
in a fresh worktree next to the main checkout. The spec records who took it
and which branch carries the work.

Only specs in status todo can be assigned, and each spec has at most one
workspace.`,
		Args: cobra.ExactArgs(1),
		RunE: runAssign,
	}
	rootCmd.AddCommand(assignCmd)
}

func runAssign(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	spec, err := a.store.Get(args[0])
	if err != nil {
		return err
	}
	if spec.Status != types.StatusTodo {
		return fmt.Errorf("spec %s is %s; only todo specs can be assigned", spec.Slug, spec.Status)
	}
	if spec.AssignedTo != "" && spec.AssignedTo != a.user {
		return fmt.Errorf("spec %s is assigned to %s", spec.Slug, spec.AssignedTo)
	}
	if GetDryRun() {
		fmt.Printf("[dry-run] Would create workspace %s on branch %s\n",
			a.workspaces.Path(spec.Slug), a.workspaces.Branch(spec.Slug))
		return nil
	}

	// Record the assignment and commit it before cutting the worktree, so the
	// new branch carries the assigned record from its first commit.
	branch := a.workspaces.Branch(spec.Slug)
	if _, err := a.store.Update(spec.Slug, func(s *types.Spec) error {
		s.AssignedTo = a.user
		s.Branch = branch
		return nil
	}); err != nil {
		return err
	}
	if err := a.git.AddAll(a.cfg.BaseDir); err != nil {
		return err
	}
	if _, err := a.git.Commit(fmt.Sprintf("specsync: assign %s to %s", spec.Slug, a.user)); err != nil {
		return err
	}
	current, err := a.git.CurrentBranch()
	if err != nil {
		return err
	}
	if a.git.RemoteBranchExists(current) {
		if err := a.git.Push(current, false); err != nil {
			return err
		}
	}

	// Mirror the assignment to the tracker so the issue shows the owner.
	if spec.Linked() {
		if err := a.tracker.Check(); err == nil {
			if err := a.tracker.SetAssignee(spec.IssueID, a.user); err != nil {
				return err
			}
		} else {
			fmt.Println("Tracker unreachable; assignee will not appear on the issue.")
		}
	}

	ws, err := a.workspaces.Create(spec.Slug)
	if err != nil {
		if errors.Is(err, types.ErrWorkspaceExists) {
			return fmt.Errorf("spec %s already has a workspace at %s", spec.Slug, a.workspaces.Path(spec.Slug))
		}
		return err
	}

	fmt.Printf("Workspace ready: %s\n", ws.Path)
	fmt.Printf("Branch:          %s\n", ws.Branch)
	return nil
}
