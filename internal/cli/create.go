package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pablasso/sherpa/internal/agent"
	"github.com/pablasso/sherpa/internal/task"
	"github.com/pablasso/sherpa/internal/util"
)

var (
	createSubtasksOf string
	createDryRun     bool
)

var createCmd = &cobra.Command{
	Use:   "create <design.md>",
	Short: "Create tasks from a technical design or PRD",
	Long:  `Reads a markdown design document, asks the agent to break it into discrete tasks with acceptance criteria and verify commands, and stores them under .sherpa/tasks/.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createSubtasksOf, "subtasks-of", "", "Attach the extracted tasks as subtasks of an existing task")
	createCmd.Flags().BoolVar(&createDryRun, "dry-run", false, "Preview extracted tasks without saving them")
}

func runCreate(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	// 1. Validate inputs
	if err := validateCreateInputs(filePath, createDryRun); err != nil {
		return err
	}

	// 2. Read the design document
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	fmt.Printf("Creating tasks from: %s\n", filePath)
	fmt.Println("Extracting tasks...")

	// 3. Extract tasks via the agent
	a, err := buildAgent("")
	if err != nil {
		return err
	}
	result, err := agent.ExtractTasks(cmd.Context(), a, string(content))
	if err != nil {
		return err
	}

	// 4. Dry run previews without touching the repository
	if createDryRun {
		printCreatePreview(assembleTasks(result.Tasks, createSubtasksOf, 0))
		return nil
	}

	// 5. Persist through the repository
	root, err := findRepoRoot()
	if err != nil {
		return err
	}
	repo := task.NewFileRepository(task.StateDir(root))
	tasks, err := persistTasks(repo, result.Tasks, createSubtasksOf)
	if err != nil {
		return err
	}

	// 6. Print success message
	printCreateSuccess(tasks, createSubtasksOf)
	return nil
}

// validateCreateInputs checks the document path before any agent call.
// Dry runs skip the repository check so previews work anywhere.
func validateCreateInputs(filePath string, dryRun bool) error {
	if !dryRun {
		if _, err := findRepoRoot(); err != nil {
			return err
		}
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", filePath)
	}
	if err != nil {
		return fmt.Errorf("failed to access file: %w", err)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".md") {
		return fmt.Errorf("file must be markdown (.md): %s", filePath)
	}

	if info.Size() == 0 {
		return fmt.Errorf("design document is empty: %s", filePath)
	}

	return nil
}

// buildAgent picks the best available agent: the Anthropic API when a
// key is configured, otherwise the local claude CLI. Both create and run
// use it, for task extraction and review verdicts respectively.
func buildAgent(workDir string) (agent.Agent, error) {
	if a, err := agent.NewAnthropicAgent("", ""); err == nil {
		return a, nil
	}
	if agent.IsClaudeAvailable() {
		return agent.NewCLIAgent(workDir, ""), nil
	}
	return nil, fmt.Errorf("no agent available: set ANTHROPIC_API_KEY or install the claude CLI")
}

// assembleTasks converts extracted tasks into stored tasks with sequential
// IDs. startIndex is the number of existing siblings, so new IDs continue
// where the repository left off.
func assembleTasks(extracted []task.ExtractedTask, parentID string, startIndex int) []*task.Task {
	tasks := make([]*task.Task, len(extracted))
	for i, et := range extracted {
		id := util.GenerateTaskID(startIndex + i)
		if parentID != "" {
			id = util.GenerateSubtaskID(parentID, startIndex+i)
		}
		tasks[i] = &task.Task{
			ID:                 id,
			Title:              et.Title,
			Content:            et.Content,
			AcceptanceCriteria: et.AcceptanceCriteria,
			VerifyCommands:     et.VerifyCommands,
			Status:             task.StatusTodo,
			ParentID:           parentID,
		}
	}
	return tasks
}

// persistTasks writes the extracted tasks, linking them under a parent
// when one was given.
func persistTasks(repo *task.FileRepository, extracted []task.ExtractedTask, parentID string) ([]*task.Task, error) {
	var startIndex int
	if parentID != "" {
		parent, err := repo.Get(parentID)
		if err != nil {
			return nil, err
		}
		startIndex = len(parent.SubtaskIDs)
	} else {
		idx, err := repo.NextIndex()
		if err != nil {
			return nil, err
		}
		startIndex = idx
	}

	tasks := assembleTasks(extracted, parentID, startIndex)
	for _, t := range tasks {
		if err := repo.Create(t); err != nil {
			return nil, err
		}
		if parentID != "" {
			if err := repo.AddSubtask(parentID, t.ID); err != nil {
				return nil, err
			}
		}
	}
	return tasks, nil
}

// printCreatePreview displays extracted tasks without saving.
func printCreatePreview(tasks []*task.Task) {
	fmt.Println()
	fmt.Println("Task preview (dry run - nothing saved):")
	fmt.Println()

	for _, t := range tasks {
		fmt.Printf("  %s: %s\n", t.ID, t.Title)
		for _, ac := range t.AcceptanceCriteria {
			fmt.Printf("       - %s\n", ac)
		}
	}

	fmt.Println()
	fmt.Println("To create these tasks, run without --dry-run.")
}

// printCreateSuccess displays the created tasks and how to run them.
func printCreateSuccess(tasks []*task.Task, parentID string) {
	fmt.Println()
	fmt.Printf("Created %d tasks:\n", len(tasks))
	fmt.Println()

	for _, t := range tasks {
		fmt.Printf("  %s: %s\n", t.ID, t.Title)
	}

	runID := parentID
	if runID == "" && len(tasks) > 0 {
		runID = tasks[0].ID
	}
	fmt.Println()
	fmt.Printf("Run `sherpa run %s` to start execution.\n", runID)
}
