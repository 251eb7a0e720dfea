package orchestrator

import (
	"context"
	"time"

	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/git"
	"github.com/pablasso/sherpa/internal/task"
)

// runAttempt performs one execute+verify cycle and returns the attempt
// record. A verification failure is a structured outcome (Success=false,
// nil error); an adapter crash returns a *ProcessError alongside the
// partial record so callers can retry or propagate.
func (o *Orchestrator) runAttempt(ctx context.Context, tsk *task.Task, cfg ExecutionConfig, number int, plan, retryContext string) (Attempt, error) {
	tool, execCfg := resolveAttempt(cfg, number)
	att := Attempt{
		Number: number,
		Tool:   tool,
		Model:  execCfg.Model,
	}
	started := time.Now()

	o.emit(func(l Listener) { l.OnAttemptStart(tsk.ID, number, tool, execCfg.Model) })

	adapter, err := o.newAdapter(tool, executor.Options{
		WorkDir: cfg.WorkDir,
		Output:  o.output,
		Logger:  o.logger,
	})
	if err != nil {
		att.Error = err.Error()
		att.Duration = time.Since(started)
		return att, err
	}

	prompt := buildExecutionPrompt(tsk, cfg, plan, retryContext, number)

	o.emit(func(l Listener) { l.OnPhase(tsk.ID, PhaseExecuting) })
	if err := adapter.Execute(ctx, prompt, cfg.DryRun, execCfg); err != nil {
		att.Duration = time.Since(started)
		if ctx.Err() != nil {
			att.Error = ctx.Err().Error()
			return att, ctx.Err()
		}
		// The agent process died. Land the task back on todo in case
		// this error escapes the whole run.
		if !cfg.DryRun {
			if serr := o.repo.SetStatus(tsk.ID, task.StatusTodo); serr != nil {
				o.logger.Warn("failed to reset task status after process failure", "task", tsk.ID, "error", serr)
			}
		}
		perr := &ProcessError{Tool: tool, Err: err}
		att.Error = perr.Error()
		return att, perr
	}

	o.emit(func(l Listener) { l.OnPhase(tsk.ID, PhaseVerifying) })
	results, verr := o.runVerification(ctx, cfg)
	att.Verification = results
	att.Duration = time.Since(started)
	if verr != nil {
		att.Error = verr.Error()
		return att, nil
	}

	att.Success = true
	return att, nil
}

// runVerification executes the configured commands in order, halting at
// the first failure. The returned slice has one entry per command that
// actually ran; commands after a failure never run and have no entry.
func (o *Orchestrator) runVerification(ctx context.Context, cfg ExecutionConfig) ([]VerifyResult, *VerificationError) {
	if cfg.DryRun || len(cfg.VerifyCommands) == 0 {
		return nil, nil
	}

	var results []VerifyResult
	for _, command := range cfg.VerifyCommands {
		res, err := o.shell.Exec(ctx, cfg.WorkDir, command)
		if err != nil {
			output := res.Combined()
			results = append(results, VerifyResult{Command: command, Output: output})
			return results, &VerificationError{Command: command, Output: output}
		}
		results = append(results, VerifyResult{Command: command, Passed: true})
	}
	return results, nil
}

// recordChanges interprets the git state pair bracketing a successful
// attempt, auto-commits pending changes when enabled, and attaches the
// commit info to both the attempt and the result.
func (o *Orchestrator) recordChanges(ctx context.Context, tsk *task.Task, tracker GitTracker, cfg ExecutionConfig, before git.State, att *Attempt, result *Result) {
	if cfg.DryRun || !before.Available {
		return
	}

	after := tracker.Capture(ctx)
	info, err := tracker.ExtractCommitInfo(ctx, before, after)
	if err != nil {
		o.logger.Warn("could not inspect agent changes", "task", tsk.ID, "error", err)
		return
	}
	if info == nil {
		return
	}

	// Hash set means the agent already committed; only pending changes
	// get auto-committed.
	if cfg.AutoCommit && info.Hash == "" {
		o.emit(func(l Listener) { l.OnPhase(tsk.ID, PhaseCommitting) })
		tracker.AutoCommit(ctx, info)
	}

	att.Commit = info
	result.Commit = info
}
