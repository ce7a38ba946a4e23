package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/syncer"
)

func init() {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile spec records with the issue tracker",
		Long: `sync fetches the repository, fast-forwards the current branch, and
reconciles every spec record with its tracker issue in both directions.

Unlinked specs get an issue; issues carrying the spec label but no local
record get one. When both sides of a pair changed since the last sync the
pair is reported as a conflict and left untouched.`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}

	syncStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report drift without changing anything",
		Args:  cobra.NoArgs,
		RunE:  runSyncStatus,
	}

	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

func newEngine(a *app) *syncer.Engine {
	var out *os.File
	if GetVerbose() || GetDryRun() {
		out = os.Stdout
	} else {
		out = os.Stderr
	}
	return &syncer.Engine{
		Store:       a.store,
		Tracker:     a.tracker,
		Labels:      a.labels,
		Git:         a.git,
		Cfg:         a.cfg,
		RecordsPath: filepath.Join(a.cfg.BaseDir, "specs"),
		DryRun:      GetDryRun(),
		Out:         out,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	engine := newEngine(a)

	plan, err := engine.Sync()
	if err != nil {
		return err
	}
	if plan.Empty() && len(plan.Drifts) == 0 {
		fmt.Println("Everything in sync.")
		return nil
	}
	fmt.Printf("Sync done: %d created, %d adopted, %d pushed, %d pulled, %d relabeled, %d conflicts\n",
		len(plan.CreateRemote), len(plan.CreateLocal), len(plan.PushBody),
		len(plan.PullBody), len(plan.PushStatus), len(plan.Conflicts))
	if len(plan.Conflicts) > 0 {
		fmt.Println("Conflicts need manual resolution:")
		for _, d := range plan.Conflicts {
			fmt.Printf("  %s\n", d)
		}
	}
	return nil
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.tracker.Check(); err != nil {
		return err
	}
	engine := newEngine(a)

	plan, err := engine.BuildPlan()
	if err != nil {
		return err
	}
	if len(plan.Drifts) == 0 && plan.Empty() {
		fmt.Println("No drift.")
		return nil
	}
	for _, slug := range plan.CreateRemote {
		fmt.Printf("unlinked   %s: no tracker issue yet\n", slug)
	}
	for _, issue := range plan.CreateLocal {
		fmt.Printf("unadopted  #%d: %s\n", issue.Number, issue.Title)
	}
	for _, d := range plan.Drifts {
		fmt.Println(d)
	}
	return nil
}
