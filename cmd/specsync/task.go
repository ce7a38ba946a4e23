package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specsync/specsync/internal/types"
)

func init() {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage the tasks of a spec",
	}

	taskAddCmd := &cobra.Command{
		Use:   "add <spec> <title>",
		Short: "Add a task to a spec",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runTaskAdd,
	}

	taskListCmd := &cobra.Command{
		Use:   "list <spec>",
		Short: "List the tasks of a spec",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskList,
	}

	taskDoneCmd := &cobra.Command{
		Use:   "done <spec> <task>",
		Short: "Mark a task (and its subtasks) completed",
		Args:  cobra.ExactArgs(2),
		RunE:  runTaskDone,
	}

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	title := strings.Join(args[1:], " ")
	if GetDryRun() {
		fmt.Printf("[dry-run] Would add task %q to %s\n", title, args[0])
		return nil
	}
	task, err := a.store.CreateTask(args[0], title)
	if err != nil {
		return err
	}
	fmt.Printf("Added task %02d_%s to %s\n", task.Order, task.Slug, task.SpecSlug)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	tasks, err := a.store.Tasks(args[0])
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	for _, task := range tasks {
		mark := " "
		if task.Status == types.TaskCompleted {
			mark = "x"
		}
		fmt.Printf("[%s] %02d %s\n", mark, task.Order, task.Title)
		for _, st := range task.Subtasks {
			subMark := " "
			if st.Status == types.TaskCompleted {
				subMark = "x"
			}
			fmt.Printf("    [%s] %s\n", subMark, st.Title)
		}
	}
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if GetDryRun() {
		fmt.Printf("[dry-run] Would complete task %s of %s\n", args[1], args[0])
		return nil
	}
	task, err := a.store.CompleteTask(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Completed %02d_%s\n", task.Order, task.Slug)
	return nil
}
