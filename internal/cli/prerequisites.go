package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/task"
)

// PrerequisiteError represents a failed prerequisite check with helpful remediation info.
type PrerequisiteError struct {
	Check   string
	Message string
	Help    string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("%s: %s\n\n%s", e.Check, e.Message, e.Help)
}

// checkPrerequisites validates the environment before init. Run commands
// use the lighter checkAgentCLI, which skips the auth probe.
func checkPrerequisites(tool executor.Tool) error {
	if err := checkGitRepo(); err != nil {
		return err
	}
	if err := checkAgentCLI(tool); err != nil {
		return err
	}
	return checkAgentAuth(tool)
}

// checkGitRepo verifies we're in a git repository.
func checkGitRepo() error {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	if err := cmd.Run(); err != nil {
		return &PrerequisiteError{
			Check:   "Git repository",
			Message: "Not a git repository",
			Help:    "Sherpa requires a git repository. Run 'git init' first.",
		}
	}
	return nil
}

// checkAgentCLI verifies the selected coding agent CLI is installed.
func checkAgentCLI(tool executor.Tool) error {
	name := string(tool)
	if _, err := exec.LookPath(name); err != nil {
		return &PrerequisiteError{
			Check:   fmt.Sprintf("%s CLI", name),
			Message: fmt.Sprintf("%s CLI not found", name),
			Help:    agentInstallHelp(tool),
		}
	}
	return nil
}

// checkAgentAuth verifies the agent CLI is authenticated. Claude exposes
// an auth status command; codex has no equivalent, so it passes.
func checkAgentAuth(tool executor.Tool) error {
	if tool != executor.ToolClaude {
		return nil
	}
	cmd := exec.Command("claude", "auth", "status")
	if err := cmd.Run(); err != nil {
		return &PrerequisiteError{
			Check:   "claude authentication",
			Message: "Claude Code not authenticated",
			Help:    "Run 'claude auth' to authenticate.",
		}
	}
	return nil
}

func agentInstallHelp(tool executor.Tool) string {
	switch tool {
	case executor.ToolCodex:
		return "Install the Codex CLI: npm install -g @openai/codex"
	default:
		return "Install Claude Code: https://claude.ai/code"
	}
}

// IsInitialized checks if sherpa is initialized in the current directory.
func IsInitialized() bool {
	info, err := os.Stat(task.StateDirName)
	return err == nil && info.IsDir()
}

// findRepoRoot walks up from the working directory looking for the
// .sherpa folder and returns the directory containing it. Commands use
// this so they work from any subdirectory of an initialized project.
func findRepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		info, err := os.Stat(task.StateDir(dir))
		if err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("sherpa is not initialized. Run 'sherpa init' first")
		}
		dir = parent
	}
}
