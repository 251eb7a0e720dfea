package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pablasso/sherpa/internal/task"
)

var tasksStatus string

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and inspect tasks",
	Long:  `Commands for browsing the tasks stored under .sherpa/tasks/.`,
	RunE:  runTasksList,
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTasksList,
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <taskID>",
	Short: "Show one task in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksShow,
}

func init() {
	tasksCmd.PersistentFlags().StringVar(&tasksStatus, "status", "", "Filter by status: todo, in-progress or completed")
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksShowCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	root, err := findRepoRoot()
	if err != nil {
		return err
	}

	filter, err := parseStatusFilter(tasksStatus)
	if err != nil {
		return err
	}

	repo := task.NewFileRepository(task.StateDir(root))
	tasks, err := repo.List(filter)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		if filter.Status != "" {
			fmt.Printf("No %s tasks.\n", filter.Status)
			return nil
		}
		fmt.Println("No tasks yet. Create some: sherpa create <design.md>")
		return nil
	}

	for _, t := range tasks {
		fmt.Println(formatTaskLine(t))
	}
	return nil
}

func runTasksShow(cmd *cobra.Command, args []string) error {
	root, err := findRepoRoot()
	if err != nil {
		return err
	}

	repo := task.NewFileRepository(task.StateDir(root))
	t, err := repo.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", t.ID, t.Title)
	fmt.Printf("Status: %s\n", t.Status)
	if t.ParentID != "" {
		fmt.Printf("Parent: %s\n", t.ParentID)
	}
	if len(t.SubtaskIDs) > 0 {
		fmt.Printf("Subtasks: %s\n", strings.Join(t.SubtaskIDs, ", "))
	}

	if t.Content != "" {
		fmt.Println()
		fmt.Println(t.Content)
	}

	if len(t.AcceptanceCriteria) > 0 {
		fmt.Println()
		fmt.Println("Acceptance criteria:")
		for _, ac := range t.AcceptanceCriteria {
			fmt.Printf("  - %s\n", ac)
		}
	}

	if len(t.VerifyCommands) > 0 {
		fmt.Println()
		fmt.Println("Verify commands:")
		for _, vc := range t.VerifyCommands {
			fmt.Printf("  - %s\n", vc)
		}
	}

	if t.Plan != "" {
		fmt.Println()
		fmt.Printf("Plan: %s\n", task.PlanFilePath(root, t.ID))
	}
	return nil
}

// parseStatusFilter validates the --status flag. Empty means no filter.
func parseStatusFilter(s string) (task.ListFilter, error) {
	if s == "" {
		return task.ListFilter{}, nil
	}
	status := task.Status(s)
	if !status.Valid() {
		return task.ListFilter{}, fmt.Errorf("unknown status %q (expected todo, in-progress or completed)", s)
	}
	return task.ListFilter{Status: status}, nil
}

// formatTaskLine renders one list row, indenting subtasks under their
// parents.
func formatTaskLine(t *task.Task) string {
	indent := strings.Repeat("  ", strings.Count(t.ID, "."))
	return fmt.Sprintf("  %s%-8s %-12s %s", indent, t.ID, t.Status, t.Title)
}
