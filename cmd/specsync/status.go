package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/types"
)

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active spec and lifecycle counts",
		Long: `status reports which spec workspace (if any) contains the working
directory, and how many specs sit in each lifecycle state. "Active" is
derived from the current worktree, never stored in a record.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	ws, err := a.workspaces.ResolveActive(cwd)
	if err != nil {
		return err
	}
	if ws != nil {
		fmt.Printf("Active spec: %s (branch %s)\n", ws.Slug, ws.Branch)
	} else {
		fmt.Println("Active spec: none (not inside a spec workspace)")
	}

	live, err := a.store.List("")
	if err != nil {
		return err
	}
	counts := map[types.SpecStatus]int{}
	for _, spec := range live {
		counts[spec.Status]++
	}
	completed, err := a.store.List(types.StatusCompleted)
	if err != nil {
		return err
	}
	abandoned, err := a.store.List(types.StatusAbandoned)
	if err != nil {
		return err
	}

	fmt.Printf("todo:        %d\n", counts[types.StatusTodo])
	fmt.Printf("merge_ready: %d\n", counts[types.StatusMergeReady])
	fmt.Printf("completed:   %d\n", len(completed))
	fmt.Printf("abandoned:   %d\n", len(abandoned))

	workspaces, err := a.workspaces.List()
	if err != nil {
		return err
	}
	if len(workspaces) > 0 {
		fmt.Println("Workspaces:")
		for _, w := range workspaces {
			fmt.Printf("  %-30s %s\n", w.Slug, w.Path)
		}
	}
	return nil
}
