package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/mergeq"
)

var mergeForce bool

func init() {
	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "Run the merge queue",
		Long: `merge rebase-merges every merge-ready spec whose pull request is clean,
then tears down its branches and workspace, archives the record, and closes
the tracker issue.

Specs blocked on failing checks are skipped unless --force is given.
Specs with merge conflicts are always skipped; conflicts are never forced.`,
		Args: cobra.NoArgs,
		RunE: runMerge,
	}
	mergeCmd.Flags().BoolVar(&mergeForce, "force", false, "Also merge PRs with failing checks (never conflicts)")

	mergeListCmd := &cobra.Command{
		Use:   "list",
		Short: "Classify merge-ready specs without merging",
		Args:  cobra.NoArgs,
		RunE:  runMergeList,
	}

	mergePromoteCmd := &cobra.Command{
		Use:   "promote <staging|production>",
		Short: "Fast-forward the promotion chain up to the given target",
		Long: `promote staging fast-forwards staging to the integration tip and stops.
promote production runs the full cascade: staging to integration, then
production to staging. Both refuse to run on a dirty tree, and a
non-fast-forward aborts with nothing pushed.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{mergeq.PromoteStaging, mergeq.PromoteProduction},
		RunE:      runMergePromote,
	}

	mergeCmd.AddCommand(mergeListCmd, mergePromoteCmd)
	rootCmd.AddCommand(mergeCmd)
}

func newCoordinator(a *app) *mergeq.Coordinator {
	return &mergeq.Coordinator{
		Store:      a.store,
		Tracker:    a.tracker,
		Labels:     a.labels,
		Workspaces: a.workspaces,
		Git:        a.git,
		Cfg:        a.cfg,
		DryRun:     GetDryRun(),
		Out:        os.Stdout,
	}
}

func runMerge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.tracker.Check(); err != nil {
		return err
	}

	result, err := newCoordinator(a).MergeAll(mergeForce)
	if err != nil {
		return err
	}
	if len(result.Merged) == 0 && len(result.Skipped) == 0 {
		fmt.Println("Nothing merge-ready.")
		return nil
	}
	for _, slug := range result.Merged {
		fmt.Printf("merged   %s\n", slug)
	}
	for _, cand := range result.Skipped {
		fmt.Printf("skipped  %-30s %s\n", cand.Spec.Slug, cand.Reason)
	}

	// Landed work moved records around; reconcile the tracker right away.
	if len(result.Merged) > 0 && !GetDryRun() {
		if _, err := newEngine(a).Sync(); err != nil {
			return fmt.Errorf("post-merge sync: %w", err)
		}
	}
	return nil
}

func runMergeList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.tracker.Check(); err != nil {
		return err
	}

	candidates, err := newCoordinator(a).Candidates()
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("Nothing merge-ready.")
		return nil
	}
	for _, cand := range candidates {
		pr := "-"
		if cand.PR != nil {
			pr = fmt.Sprintf("#%d", cand.PR.Number)
		}
		fmt.Printf("%-16s %-30s %-6s %s\n", cand.State, cand.Spec.Slug, pr, cand.Reason)
	}
	return nil
}

func runMergePromote(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	target := args[0]
	if err := newCoordinator(a).Promote(target); err != nil {
		return err
	}
	if !GetDryRun() {
		if target == mergeq.PromoteProduction {
			fmt.Printf("Promoted: %s -> %s -> %s\n",
				a.cfg.Branches.Integration, a.cfg.Branches.Staging, a.cfg.Branches.Production)
		} else {
			fmt.Printf("Promoted: %s -> %s\n",
				a.cfg.Branches.Integration, a.cfg.Branches.Staging)
		}
	}
	return nil
}
