package orchestrator

import (
	"context"
	"errors"

	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/git"
	"github.com/pablasso/sherpa/internal/task"
)

// resolveAttempt returns the tool and executor config for attempt n.
// The escalation list is consumed in order; once exhausted the final
// entry is reused, never cycled. Attempts after the first continue the
// agent's previous session so it sees the injected error context.
func resolveAttempt(cfg ExecutionConfig, n int) (executor.Tool, executor.Config) {
	tool := cfg.Tool
	execCfg := cfg.Executor

	if len(cfg.TryModels) > 0 {
		idx := n - 1
		if idx >= len(cfg.TryModels) {
			idx = len(cfg.TryModels) - 1
		}
		attempt := cfg.TryModels[idx]
		if attempt.Tool != "" {
			tool = attempt.Tool
		}
		if attempt.Model != "" {
			execCfg.Model = attempt.Model
		}
	}

	if n > 1 {
		execCfg.ContinueLastSession = true
	}
	return tool, execCfg
}

// runWithRetries drives attempts 1..MaxRetries until one passes
// verification and review. Verification failures, review rejections and
// agent process crashes are recorded and retried; anything else is
// fatal. On exhaustion result.Success stays false with the complete
// attempt log.
func (o *Orchestrator) runWithRetries(ctx context.Context, tsk *task.Task, tracker GitTracker, cfg ExecutionConfig, result *Result, plan string) error {
	var before git.State
	if !cfg.DryRun {
		before = tracker.Capture(ctx)
	}

	retryContext := ""
	for n := 1; n <= cfg.MaxRetries; n++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		att, err := o.runAttempt(ctx, tsk, cfg, n, plan, retryContext)
		if err != nil {
			var perr *ProcessError
			if !errors.As(err, &perr) || ctx.Err() != nil {
				result.Attempts = append(result.Attempts, att)
				return err
			}
			// Process crash is retryable.
			result.Attempts = append(result.Attempts, att)
			o.emit(func(l Listener) { l.OnAttemptEnd(tsk.ID, att) })
			retryContext = att.Error
			continue
		}

		if !att.Success {
			result.Attempts = append(result.Attempts, att)
			o.emit(func(l Listener) { l.OnAttemptEnd(tsk.ID, att) })
			retryContext = att.Error
			continue
		}

		if cfg.Review {
			approved, feedback, rerr := o.runReview(ctx, tsk, tracker, cfg, before, plan)
			if rerr != nil {
				att.Success = false
				att.Error = rerr.Error()
				result.Attempts = append(result.Attempts, att)
				return rerr
			}
			if !approved {
				rejection := &ReviewRejectionError{Feedback: feedback}
				att.Success = false
				att.Error = rejection.Error()
				result.Attempts = append(result.Attempts, att)
				o.emit(func(l Listener) { l.OnAttemptEnd(tsk.ID, att) })
				retryContext = att.Error
				continue
			}
			result.ReviewFeedback = feedback
		}

		o.recordChanges(ctx, tsk, tracker, cfg, before, &att, result)
		result.Attempts = append(result.Attempts, att)
		o.emit(func(l Listener) { l.OnAttemptEnd(tsk.ID, att) })
		result.Success = true
		return nil
	}

	return nil
}

// runSinglePass executes exactly one attempt with no review. Unlike the
// retry path, an agent process crash propagates to the caller.
func (o *Orchestrator) runSinglePass(ctx context.Context, tsk *task.Task, tracker GitTracker, cfg ExecutionConfig, result *Result, plan string) error {
	var before git.State
	if !cfg.DryRun {
		before = tracker.Capture(ctx)
	}

	att, err := o.runAttempt(ctx, tsk, cfg, 1, plan, "")
	if err != nil {
		result.Attempts = append(result.Attempts, att)
		return err
	}

	if att.Success {
		o.recordChanges(ctx, tsk, tracker, cfg, before, &att, result)
		result.Success = true
	}
	result.Attempts = append(result.Attempts, att)
	o.emit(func(l Listener) { l.OnAttemptEnd(tsk.ID, att) })
	return nil
}
