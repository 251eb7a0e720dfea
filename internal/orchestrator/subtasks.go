package orchestrator

import (
	"context"
	"fmt"

	"github.com/pablasso/sherpa/internal/task"
)

// maxSubtaskDepth bounds subtask recursion. Task trees in practice are
// one or two levels deep; runaway nesting indicates corrupted links.
const maxSubtaskDepth = 10

// executeSubtasks runs a parent task by executing its children strictly
// sequentially in stored order. The first failure halts the run: later
// subtasks are never attempted. The parent completes iff every attempted
// subtask succeeded.
func (o *Orchestrator) executeSubtasks(ctx context.Context, parent *task.Task, cfg ExecutionConfig, depth int) (result *Result, err error) {
	subtasks, err := o.repo.Subtasks(parent.ID)
	if err != nil {
		return nil, fmt.Errorf("load subtasks of %s: %w", parent.ID, err)
	}

	if !cfg.DryRun {
		if err := o.repo.SetStatus(parent.ID, task.StatusInProgress); err != nil {
			return nil, fmt.Errorf("mark task %s in progress: %w", parent.ID, err)
		}
	}
	defer func() {
		o.landStatus(parent.ID, cfg, result, err)
	}()

	result = &Result{TaskID: parent.ID}
	for _, sub := range subtasks {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if sub.Status == task.StatusCompleted && !cfg.IncludeCompleted {
			continue
		}

		// Each recursive call gets its own config snapshot; the parent's
		// message override never applies to a child.
		subCfg := cfg
		subCfg.MessageOverride = ""

		subResult, subErr := o.execute(ctx, sub.ID, subCfg, depth+1)
		if subResult != nil {
			result.Subtasks = append(result.Subtasks, SubtaskResult{TaskID: sub.ID, Result: subResult})
		}
		if subErr != nil {
			return result, fmt.Errorf("subtask %s: %w", sub.ID, subErr)
		}
		if !subResult.Success {
			return result, nil
		}
	}

	result.Success = true
	return result, nil
}
