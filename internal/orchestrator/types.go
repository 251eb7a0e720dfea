package orchestrator

import (
	"time"

	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/git"
)

// ModelAttempt overrides executor selection for one retry attempt.
// Empty fields keep the run's defaults.
type ModelAttempt struct {
	Tool  executor.Tool `json:"tool,omitempty"`
	Model string        `json:"model,omitempty"`
}

// ReviewPlanFunc is the human plan-review callback. It receives the plan
// file path and blocks until the reviewer answers; a non-empty return is
// feedback that sends the plan back to the agent, an empty return approves.
type ReviewPlanFunc func(planPath string) (string, error)

// ExecutionConfig controls a single orchestrator run. Recursive subtask
// calls each receive their own copy, so mutations never leak between
// siblings or levels.
type ExecutionConfig struct {
	// Tool selects the coding agent CLI. Empty means claude.
	Tool executor.Tool
	// Executor carries the tool's per-invocation settings.
	Executor executor.Config
	// VerifyCommands run in order after each attempt; the first failure
	// stops the sequence.
	VerifyCommands []string
	// MaxRetries bounds execute+verify(+review) attempts. Values below 1
	// are treated as 1.
	MaxRetries int
	// TryModels is the model escalation list, consumed by attempt index
	// with the last entry reused once exhausted.
	TryModels []ModelAttempt
	// Plan, Review, AutoCommit and Subtasks toggle pipeline phases.
	Plan       bool
	Review     bool
	AutoCommit bool
	Subtasks   bool
	// IncludeCompleted re-runs subtasks that are already completed.
	IncludeCompleted bool
	// DryRun walks the pipeline without spawning processes, running
	// commands, touching git, or writing task state.
	DryRun bool
	// MessageOverride replaces the task content in the execution prompt.
	// A non-empty override also disables subtask recursion.
	MessageOverride string
	// ProjectContext is stack/documentation context included in prompts.
	ProjectContext string
	// WorkDir is the directory everything runs in: agent processes,
	// verification commands, git plumbing, and the plan file.
	WorkDir string
	// ReviewPlan, when set with Review enabled, gates each generated plan.
	ReviewPlan ReviewPlanFunc
}

// withDefaults returns a copy with unset fields normalized.
func (c ExecutionConfig) withDefaults() ExecutionConfig {
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.Tool == "" {
		c.Tool = executor.ToolClaude
	}
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	return c
}

// VerifyResult records one verification command's outcome. On a failed
// attempt the result list is shorter than the configured command list:
// commands after the first failure never ran and have no entry, so a
// missing entry must not be read as a pass.
type VerifyResult struct {
	Command string `json:"command"`
	Passed  bool   `json:"passed"`
	// Output is the combined stdout and stderr of a failing command.
	Output string `json:"output,omitempty"`
}

// Attempt is one execute+verify(+review) cycle. Attempts form an
// append-only log with contiguous numbers starting at 1.
type Attempt struct {
	Number       int             `json:"number"`
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	Tool         executor.Tool   `json:"tool"`
	Model        string          `json:"model,omitempty"`
	Verification []VerifyResult  `json:"verification,omitempty"`
	Commit       *git.CommitInfo `json:"commit,omitempty"`
	Duration     time.Duration   `json:"duration"`
}

// SubtaskResult pairs a subtask ID with its execution outcome.
type SubtaskResult struct {
	TaskID string  `json:"taskId"`
	Result *Result `json:"result"`
}

// Result is the outcome of executing one task. For a task executed via
// its subtasks, Attempts stays empty and Subtasks holds the child
// outcomes in execution order.
type Result struct {
	TaskID         string          `json:"taskId"`
	Success        bool            `json:"success"`
	Attempts       []Attempt       `json:"attempts,omitempty"`
	Commit         *git.CommitInfo `json:"commit,omitempty"`
	Subtasks       []SubtaskResult `json:"subtasks,omitempty"`
	Plan           string          `json:"plan,omitempty"`
	ReviewFeedback string          `json:"reviewFeedback,omitempty"`
}
