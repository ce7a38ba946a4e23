package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/types"
)

var specListStatus string

func init() {
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Create, list, and inspect spec records",
	}

	specNewCmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a new spec in status todo",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSpecNew,
	}

	specListCmd := &cobra.Command{
		Use:   "list",
		Short: "List specs",
		Args:  cobra.NoArgs,
		RunE:  runSpecList,
	}
	specListCmd.Flags().StringVar(&specListStatus, "status", "", "Filter by status (todo, merge_ready, completed, abandoned)")

	specShowCmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Print a spec record",
		Args:  cobra.ExactArgs(1),
		RunE:  runSpecShow,
	}

	specAbandonCmd := &cobra.Command{
		Use:   "abandon <slug>",
		Short: "Abandon a spec and tear down its workspace",
		Args:  cobra.ExactArgs(1),
		RunE:  runSpecAbandon,
	}

	specCmd.AddCommand(specNewCmd, specListCmd, specShowCmd, specAbandonCmd)
	rootCmd.AddCommand(specCmd)
}

func runSpecNew(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	title := strings.Join(args, " ")
	if GetDryRun() {
		fmt.Printf("[dry-run] Would create spec %q\n", title)
		return nil
	}
	spec, err := a.store.Create(title)
	if err != nil {
		return err
	}
	fmt.Printf("Created spec %s (%s)\n", spec.Slug, spec.Status)
	fmt.Printf("Record: %s\n", a.store.SpecPath(spec.Slug))
	return nil
}

func runSpecList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	status := types.SpecStatus(specListStatus)
	if specListStatus != "" && !types.ValidSpecStatus(status) {
		return fmt.Errorf("unknown status %q", specListStatus)
	}
	specs, err := a.store.List(status)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		fmt.Println("No specs found.")
		return nil
	}
	for _, spec := range specs {
		issue := "-"
		if spec.Linked() {
			issue = fmt.Sprintf("#%d", spec.IssueID)
		}
		fmt.Printf("%-30s %-12s %-6s %s\n", spec.Slug, spec.Status, issue, spec.Title)
	}
	return nil
}

func runSpecShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	spec, err := a.store.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Slug:     %s\n", spec.Slug)
	fmt.Printf("Title:    %s\n", spec.Title)
	fmt.Printf("Status:   %s\n", spec.Status)
	if spec.AssignedTo != "" {
		fmt.Printf("Assigned: %s\n", spec.AssignedTo)
	}
	if spec.Branch != "" {
		fmt.Printf("Branch:   %s\n", spec.Branch)
	}
	if spec.Linked() {
		fmt.Printf("Issue:    #%d %s\n", spec.IssueID, spec.IssueURL)
	}
	if spec.PRURL != "" {
		fmt.Printf("PR:       %s\n", spec.PRURL)
	}
	fmt.Printf("Updated:  %s\n", spec.UpdatedAt)

	tasks, err := a.store.Tasks(spec.Slug)
	if err != nil {
		return err
	}
	if len(tasks) > 0 {
		fmt.Println("Tasks:")
		for _, task := range tasks {
			mark := " "
			if task.Status == types.TaskCompleted {
				mark = "x"
			}
			fmt.Printf("  [%s] %02d %s\n", mark, task.Order, task.Title)
		}
	}
	fmt.Printf("\n%s\n", spec.Body)
	return nil
}

func runSpecAbandon(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	spec, err := a.store.Get(args[0])
	if err != nil {
		return err
	}
	if GetDryRun() {
		fmt.Printf("[dry-run] Would abandon %s, close its PR, and remove its workspace\n", spec.Slug)
		return nil
	}

	withRemote := spec.Linked() || spec.Branch != ""
	if withRemote {
		if err := a.tracker.Check(); err != nil {
			fmt.Println("Tracker unreachable; PR and issue will be closed on the next sync.")
			withRemote = false
		}
	}
	spec, err = newCoordinator(a).Abandon(spec.Slug, withRemote)
	if err != nil {
		return err
	}
	fmt.Printf("Abandoned %s\n", spec.Slug)
	return nil
}
