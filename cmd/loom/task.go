package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaloom/loom/internal/taskstore"
	"github.com/metaloom/loom/pkg/models"
)

var (
	taskAddDescription string
	taskAddParent      string
	taskAddPriority    int
	taskAddDependsOn   []string

	taskListAll       bool
	taskListCompleted bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long: `Create, list, complete, and remove tasks in the persistent store.

New tasks are checked against existing ones with fuzzy matching; a task
whose name and description both closely match an existing task is
suppressed as a duplicate rather than stored twice.`,
}

var taskAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a task",
	Long: `Remove a task from the store.

Removal does not cascade: subtasks of the removed task stay in the
store and keep their parent reference.`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskRm,
}

var taskTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show tasks as a parent/child tree",
	RunE:  runTaskTree,
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskAddDescription, "description", "d", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskAddParent, "parent", "", "Parent task ID (creates a subtask)")
	taskAddCmd.Flags().IntVar(&taskAddPriority, "priority", 0, "Task priority")
	taskAddCmd.Flags().StringSliceVar(&taskAddDependsOn, "depends-on", nil, "IDs of tasks this task depends on")

	taskListCmd.Flags().BoolVarP(&taskListAll, "all", "a", false, "Include completed tasks")
	taskListCmd.Flags().BoolVar(&taskListCompleted, "completed", false, "Show only completed tasks")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskRmCmd)
	taskCmd.AddCommand(taskTreeCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	t := models.Task{
		Name:             strings.Join(args, " "),
		Description:      taskAddDescription,
		Priority:         taskAddPriority,
		DependentTaskIDs: taskAddDependsOn,
	}

	var result taskstore.CreateResult
	if taskAddParent != "" {
		result, err = store.CreateSubtask(taskAddParent, t)
	} else {
		result, err = store.CreateTask(t)
	}
	if err != nil {
		return fmt.Errorf("adding task: %w", err)
	}

	if result.Created() {
		fmt.Printf("%s Added task %s\n", color.GreenString("✓"), result.ID)
	} else {
		fmt.Printf("%s Suppressed as duplicate of %s\n", color.YellowString("⚠"), result.DuplicateOf)
	}
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var tasks []models.Task
	switch {
	case taskListCompleted:
		tasks, err = store.GetCompletedTasks()
	case taskListAll:
		tasks, err = store.GetAllTasks()
	default:
		tasks, err = store.GetIncompleteTasks()
	}
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}

	for _, t := range tasks {
		printTask(t, "")
	}
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id := args[0]
	if err := store.MarkCompleted(id); err != nil {
		if errors.Is(err, taskstore.ErrTaskNotFound) {
			fmt.Fprintf(os.Stderr, "Error: no task with id %s\n", id)
			os.Exit(1)
		}
		return fmt.Errorf("completing task: %w", err)
	}

	fmt.Printf("%s Completed %s\n", color.GreenString("✓"), id)
	return nil
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteTask(args[0]); err != nil {
		return fmt.Errorf("removing task: %w", err)
	}

	fmt.Printf("Removed %s\n", args[0])
	return nil
}

func runTaskTree(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	tasks, err := store.GetAllTasks()
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}

	byID := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = true
	}

	children := make(map[string][]models.Task)
	var roots []models.Task
	for _, t := range tasks {
		// A task whose parent was removed is shown as a root.
		if t.HasParent() && byID[t.ParentTaskID] {
			children[t.ParentTaskID] = append(children[t.ParentTaskID], t)
		} else {
			roots = append(roots, t)
		}
	}

	var printSubtree func(t models.Task, indent string)
	printSubtree = func(t models.Task, indent string) {
		printTask(t, indent)
		for _, child := range children[t.ID] {
			printSubtree(child, indent+"  ")
		}
	}

	for _, root := range roots {
		printSubtree(root, "")
	}
	return nil
}

// printTask renders one task line with a completion marker.
func printTask(t models.Task, indent string) {
	marker := color.YellowString("○")
	if t.Completed {
		marker = color.GreenString("●")
	}

	line := fmt.Sprintf("%s%s %s  %s", indent, marker, t.Name, color.New(color.Faint).Sprint(t.ID))
	if t.Description != "" {
		line += "\n" + indent + "  " + t.Description
	}
	fmt.Println(line)
}
