package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pablasso/sherpa/internal/agent"
	"github.com/pablasso/sherpa/internal/git"
	"github.com/pablasso/sherpa/internal/task"
)

// reviewVerdict is the JSON verdict the reviewing agent must return.
type reviewVerdict struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback"`
}

// runReview asks the agent to judge the cumulative diff since the
// pipeline started. Every degraded path (no git, empty diff, agent
// failure, unparsable verdict) auto-approves so review can never wedge
// a run; only context cancellation surfaces as an error.
func (o *Orchestrator) runReview(ctx context.Context, tsk *task.Task, tracker GitTracker, cfg ExecutionConfig, before git.State, plan string) (bool, string, error) {
	if cfg.DryRun {
		return true, "", nil
	}
	if !before.Available {
		o.logger.Warn("git unavailable, skipping review", "task", tsk.ID)
		return true, "", nil
	}

	o.emit(func(l Listener) { l.OnPhase(tsk.ID, PhaseReviewing) })

	diff, err := tracker.DiffSince(ctx, before.Head)
	if err != nil {
		if ctx.Err() != nil {
			return false, "", ctx.Err()
		}
		o.logger.Warn("failed to compute diff for review, auto-approving", "task", tsk.ID, "error", err)
		return true, "", nil
	}
	if strings.TrimSpace(diff) == "" {
		o.logger.Debug("nothing to review, auto-approving", "task", tsk.ID)
		return true, "", nil
	}

	if o.agent == nil {
		o.logger.Warn("no review agent configured, auto-approving", "task", tsk.ID)
		return true, "", nil
	}

	prompt := buildReviewPrompt(tsk, plan, cfg.ProjectContext, diff)
	resp, err := o.agent.Complete(ctx, prompt, agent.WithSystemPrompt(reviewSystemPrompt))
	if err != nil {
		if ctx.Err() != nil {
			return false, "", ctx.Err()
		}
		o.logger.Warn("review agent call failed, auto-approving", "task", tsk.ID, "error", err)
		return true, "", nil
	}

	raw, err := agent.ExtractJSON(resp)
	if err != nil {
		o.logger.Warn("review verdict unparsable, auto-approving", "task", tsk.ID, "error", err)
		return true, "", nil
	}
	var verdict reviewVerdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		o.logger.Warn("review verdict unparsable, auto-approving", "task", tsk.ID, "error", err)
		return true, "", nil
	}

	return verdict.Approved, verdict.Feedback, nil
}
