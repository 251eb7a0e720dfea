package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pablasso/sherpa/internal/config"
	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/task"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sherpa in the current repository",
	Long:  "Creates a .sherpa/ folder for tasks, plans and run data, plus a starter config.yaml. Safe to re-run; existing files are left alone.",
	RunE:  runInit,
}

// initPrereqs is swapped out in tests.
var initPrereqs = checkPrerequisites

func runInit(cmd *cobra.Command, args []string) error {
	// 1. Check prerequisites
	if err := initPrereqs(executor.ToolClaude); err != nil {
		return err
	}

	already := IsInitialized()

	// 2. Create the .sherpa directory structure
	dirs := []string{
		task.StateDirName,
		filepath.Join(task.StateDirName, task.TasksDirName),
		filepath.Join(task.StateDirName, task.PlansDirName),
		filepath.Join(task.StateDirName, task.RunsDirName),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	// 3. Write the starter config unless one exists
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := config.WriteDefault(cwd); err != nil {
		return err
	}

	if already {
		fmt.Println("sherpa is already initialized in", task.StateDirName)
		return nil
	}

	fmt.Println("Initialized sherpa in", task.StateDirName)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Create tasks from a design doc: sherpa create <design.md>")
	fmt.Println("  2. Run the first task: sherpa run t01")
	return nil
}
