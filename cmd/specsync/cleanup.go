package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/types"
)

var cleanupAll bool

func init() {
	cleanupCmd := &cobra.Command{
		Use:   "cleanup [slug]",
		Short: "Tear down spec workspaces",
		Long: `cleanup removes a spec's worktree and feature branch. Both halves are
idempotent, so a half-removed workspace can be cleaned up again.

With --all, every workspace whose spec is completed, abandoned, or gone is
removed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCleanup,
	}
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "Remove all orphaned workspaces")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if cleanupAll {
		return cleanupOrphans(a)
	}
	if len(args) != 1 {
		return fmt.Errorf("pass a spec slug or --all")
	}

	slug, _, err := a.store.Resolve(args[0])
	if err != nil {
		// Records can vanish before their workspace does; clean by raw slug.
		if !errors.Is(err, types.ErrSpecNotFound) {
			return err
		}
		slug = args[0]
	}
	if GetDryRun() {
		fmt.Printf("[dry-run] Would remove workspace %s and branch %s\n",
			a.workspaces.Path(slug), a.workspaces.Branch(slug))
		return nil
	}
	if err := a.workspaces.Remove(slug, true); err != nil {
		return err
	}
	fmt.Printf("Removed workspace for %s\n", slug)
	return nil
}

// cleanupOrphans removes every workspace and feature branch not backed by a
// live spec.
func cleanupOrphans(a *app) error {
	liveBranches, err := liveFeatureBranches(a)
	if err != nil {
		return err
	}

	removed := 0
	workspaces, err := a.workspaces.List()
	if err != nil {
		return err
	}
	for _, ws := range workspaces {
		if liveBranches[ws.Branch] {
			continue
		}
		if GetDryRun() {
			fmt.Printf("[dry-run] Would remove orphaned workspace %s\n", ws.Path)
			continue
		}
		if err := a.workspaces.Remove(ws.Slug, true); err != nil {
			fmt.Printf("Warning: failed to remove %s: %v\n", ws.Path, err)
			continue
		}
		fmt.Printf("Removed orphaned workspace %s\n", ws.Path)
		removed++
	}

	// Feature branches can outlive their worktree (and their spec).
	if err := a.git.Fetch(); err != nil {
		return err
	}
	pattern := a.cfg.Branches.FeaturePrefix + "-*"
	local, err := a.git.ListBranches(pattern)
	if err != nil {
		return err
	}
	for _, branch := range local {
		if liveBranches[branch] {
			continue
		}
		if GetDryRun() {
			fmt.Printf("[dry-run] Would delete branch %s\n", branch)
			continue
		}
		if err := a.git.DeleteBranch(branch, true); err != nil {
			fmt.Printf("Warning: failed to delete branch %s: %v\n", branch, err)
			continue
		}
		fmt.Printf("Deleted branch %s\n", branch)
		removed++
	}
	remotes, err := a.git.ListRemoteBranches(pattern)
	if err != nil {
		return err
	}
	for _, branch := range remotes {
		if liveBranches[branch] {
			continue
		}
		if GetDryRun() {
			fmt.Printf("[dry-run] Would delete remote branch %s\n", branch)
			continue
		}
		if err := a.git.DeleteRemoteBranch(branch); err != nil {
			fmt.Printf("Warning: failed to delete remote branch %s: %v\n", branch, err)
			continue
		}
		fmt.Printf("Deleted remote branch %s\n", branch)
		removed++
	}

	if removed == 0 && !GetDryRun() {
		fmt.Println("Nothing to clean up.")
	}
	return nil
}

// liveFeatureBranches returns the branches owned by specs still in flight.
func liveFeatureBranches(a *app) (map[string]bool, error) {
	specs, err := a.store.List("")
	if err != nil {
		return nil, err
	}
	live := map[string]bool{}
	for _, spec := range specs {
		if spec.Branch != "" {
			live[spec.Branch] = true
		}
	}
	return live, nil
}
