package orchestrator

import "github.com/pablasso/sherpa/internal/executor"

// Phase names the pipeline stage currently running, for progress surfaces.
type Phase string

const (
	PhasePlanning   Phase = "planning"
	PhaseExecuting  Phase = "executing"
	PhaseVerifying  Phase = "verifying"
	PhaseReviewing  Phase = "reviewing"
	PhaseCommitting Phase = "committing"
)

// Listener receives lifecycle notifications during task execution.
// Calls happen inline on the execution goroutine, so implementations
// should return quickly. Panics are recovered and logged; a broken
// listener cannot corrupt the pipeline.
type Listener interface {
	// OnTaskStart is called once per task, before any phase runs.
	OnTaskStart(taskID, title string)

	// OnPhase is called when a pipeline phase begins.
	OnPhase(taskID string, phase Phase)

	// OnAttemptStart is called before each execute+verify cycle.
	OnAttemptStart(taskID string, attempt int, tool executor.Tool, model string)

	// OnAttemptEnd is called with the completed attempt record.
	OnAttemptEnd(taskID string, attempt Attempt)

	// OnTaskEnd is called when the task finishes without a fatal error.
	OnTaskEnd(taskID string, result *Result)

	// OnTaskError is called when execution aborts with an error.
	OnTaskError(taskID string, err error)
}

// emit delivers an event to every listener, recovering per listener so
// one failing observer cannot break execution or starve its peers.
func (o *Orchestrator) emit(fn func(l Listener)) {
	for _, l := range o.listeners {
		o.emitOne(l, fn)
	}
}

func (o *Orchestrator) emitOne(l Listener, fn func(l Listener)) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("listener panicked", "panic", r)
		}
	}()
	fn(l)
}
