package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/internal/policy"
)

var initSkipRemote bool

func init() {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Set up specsync in the current repository",
		Long: `init creates the .specsync record directory, writes the default project
config, installs the branch-policy merge hook, and provisions the tracker
labels.

Safe to re-run; existing records and config are left alone.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
	initCmd.Flags().BoolVar(&initSkipRemote, "skip-remote", false, "Skip tracker label provisioning")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if GetDryRun() {
		fmt.Printf("[dry-run] Would initialize %s\n", a.cfg.SpecsDir(a.repoRoot))
		return nil
	}

	if err := a.store.Init(); err != nil {
		return err
	}
	fmt.Printf("Records:  %s\n", a.cfg.SpecsDir(a.repoRoot))

	if err := config.Save(a.cfg, a.repoRoot); err != nil {
		return err
	}
	fmt.Printf("Config:   %s/%s/config.yaml\n", a.repoRoot, config.ProjectDirName)

	pol := policy.New(a.cfg.Branches)
	if err := pol.Install(a.git, a.repoRoot); err != nil {
		return err
	}
	fmt.Printf("Hook:     %s installed, merge.ff disabled\n", policy.HookName)

	if err := ensureTopologyBranches(a); err != nil {
		return err
	}

	if initSkipRemote {
		return nil
	}
	if a.git.RemoteURL() == "" {
		fmt.Println("No origin remote configured; skipping label setup.")
		return nil
	}
	if err := a.tracker.Check(); err != nil {
		fmt.Println("Tracker unreachable; skipping label setup (rerun init or use --skip-remote).")
		return nil
	}
	if err := a.tracker.EnsureLabels(a.labels.All()...); err != nil {
		return err
	}
	fmt.Printf("Labels:   %v\n", a.labels.All())
	return nil
}

// ensureTopologyBranches creates any missing branch of the promotion chain.
// Staging and integration start at the production tip so the chain begins
// fully fast-forwardable.
func ensureTopologyBranches(a *app) error {
	production := a.cfg.Branches.Production
	if !a.git.BranchExists(production) {
		head, err := a.git.CurrentBranch()
		if err != nil {
			return err
		}
		if err := a.git.CreateBranch(production, head); err != nil {
			return err
		}
		fmt.Printf("Branch:   created %s\n", production)
	}
	for _, branch := range []string{a.cfg.Branches.Staging, a.cfg.Branches.Integration} {
		if a.git.BranchExists(branch) {
			continue
		}
		if err := a.git.CreateBranch(branch, production); err != nil {
			return err
		}
		fmt.Printf("Branch:   created %s\n", branch)
	}
	return nil
}
