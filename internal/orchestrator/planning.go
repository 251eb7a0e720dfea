package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/task"
)

// planCommitMessage is the fixed message used when auto-committing a
// plan file.
func planCommitMessage(taskID string) string {
	return fmt.Sprintf("[sherpa] plan: %s", taskID)
}

// runPlanning drives the agent to write a plan file, loops through human
// review feedback when enabled, and returns the approved plan content.
// A missing plan file is non-fatal: the pipeline proceeds without a plan.
func (o *Orchestrator) runPlanning(ctx context.Context, tsk *task.Task, adapter executor.Adapter, tracker GitTracker, cfg ExecutionConfig) (string, error) {
	planPath := task.PlanFilePath(cfg.WorkDir, tsk.ID)
	o.emit(func(l Listener) { l.OnPhase(tsk.ID, PhasePlanning) })

	feedback := ""
	for {
		prompt := buildPlanPrompt(tsk, planPath, cfg.ProjectContext, feedback)
		if err := adapter.Execute(ctx, prompt, cfg.DryRun, cfg.Executor); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &ProcessError{Tool: cfg.Tool, Err: err}
		}

		// Dry-run is a single pass-through with no file checks.
		if cfg.DryRun {
			return "", nil
		}

		data, err := os.ReadFile(planPath)
		if err != nil {
			if !os.IsNotExist(err) {
				o.logger.Warn("plan file unreadable, continuing without plan", "task", tsk.ID, "error", err)
			} else {
				o.logger.Warn("agent did not write a plan file, continuing without plan", "task", tsk.ID, "path", planPath)
			}
			return "", nil
		}
		content := string(data)

		if cfg.Review && cfg.ReviewPlan != nil {
			fb, err := cfg.ReviewPlan(planPath)
			if err != nil {
				o.logger.Warn("plan review callback failed, treating plan as approved", "task", tsk.ID, "error", err)
				fb = ""
			}
			if strings.TrimSpace(fb) != "" {
				feedback = fb
				continue
			}
		}

		if err := o.repo.SetPlan(tsk.ID, content); err != nil {
			o.logger.Warn("failed to persist plan on task", "task", tsk.ID, "error", err)
		}

		if cfg.AutoCommit {
			if err := tracker.CommitPaths(ctx, planCommitMessage(tsk.ID), planPath); err != nil {
				o.logger.Warn("failed to commit plan file", "task", tsk.ID, "error", err)
			}
		}

		return content, nil
	}
}
