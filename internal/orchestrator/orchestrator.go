// Package orchestrator drives tasks through Plan, Execute, Verify,
// Review and Retry phases against an external coding agent, tracking
// git state to detect and commit the agent's changes.
//
// Execution is single-threaded: every attempt exclusively owns the
// working directory, the git repository, and the terminal of the
// spawned agent process. The one hard guarantee is that a task's
// persisted status always lands on todo or completed, never in-progress,
// no matter how a run exits.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pablasso/sherpa/internal/agent"
	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/git"
	"github.com/pablasso/sherpa/internal/shell"
	"github.com/pablasso/sherpa/internal/task"
	"github.com/pablasso/sherpa/internal/telemetry"
)

// GitTracker is the slice of git.Tracker the pipeline depends on.
type GitTracker interface {
	Capture(ctx context.Context) git.State
	ExtractCommitInfo(ctx context.Context, before, after git.State) (*git.CommitInfo, error)
	AutoCommit(ctx context.Context, info *git.CommitInfo) bool
	CommitPaths(ctx context.Context, message string, paths ...string) error
	DiffSince(ctx context.Context, beforeHead string) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Repository loads tasks and persists status and plan changes.
	Repository task.Repository
	// Agent handles review verdicts and commit-message synthesis.
	// May be nil: both features degrade to safe defaults.
	Agent agent.Agent
	// Shell runs verification commands. Defaults to the system shell.
	Shell shell.Runner
	// Output receives the spawned agent's stdout/stderr.
	Output executor.OutputWriter
	// Listeners observe lifecycle events.
	Listeners []Listener
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Orchestrator is the task execution pipeline. Construct with New;
// the zero value is not usable.
type Orchestrator struct {
	repo      task.Repository
	agent     agent.Agent
	shell     shell.Runner
	output    executor.OutputWriter
	listeners []Listener
	logger    *slog.Logger

	// Factories, replaceable in tests.
	newAdapter func(tool executor.Tool, opts executor.Options) (executor.Adapter, error)
	newTracker func(dir string) GitTracker
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "orchestrator")
	}

	var sh shell.Runner = opts.Shell
	if sh == nil {
		sh = shell.New()
	}

	var synth git.MessageSynthesizer
	if opts.Agent != nil {
		synth = agent.CommitMessages{Agent: opts.Agent}
	}

	runMetricsOnce.Do(initRunMetrics)

	o := &Orchestrator{
		repo:      opts.Repository,
		agent:     opts.Agent,
		shell:     sh,
		output:    opts.Output,
		listeners: opts.Listeners,
		logger:    logger,
	}
	o.newAdapter = executor.New
	o.newTracker = func(dir string) GitTracker {
		return git.NewTracker(dir, git.WithSynthesizer(synth), git.WithLogger(logger))
	}
	return o
}

// Execute runs the task with the given ID through the pipeline and
// returns its result. A missing task is fatal; so are subtask depth
// overflow, repository write failures, context cancellation, and an
// agent crash outside the retry path. Retry exhaustion is NOT an error:
// it returns Success=false with the full attempt log. When err is
// non-nil the returned result, if any, carries the attempts that ran
// before the failure.
func (o *Orchestrator) Execute(ctx context.Context, taskID string, cfg ExecutionConfig) (*Result, error) {
	return o.execute(ctx, taskID, cfg, 0)
}

func (o *Orchestrator) execute(ctx context.Context, taskID string, cfg ExecutionConfig, depth int) (*Result, error) {
	if depth >= maxSubtaskDepth {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrDepthExceeded)
	}
	cfg = cfg.withDefaults()

	tsk, err := o.repo.Get(taskID)
	if err != nil {
		err = fmt.Errorf("load task: %w", err)
		o.emit(func(l Listener) { l.OnTaskError(taskID, err) })
		return nil, err
	}

	o.emit(func(l Listener) { l.OnTaskStart(tsk.ID, tsk.Title) })

	var result *Result
	if cfg.Subtasks && cfg.MessageOverride == "" && tsk.HasSubtasks() {
		result, err = o.executeSubtasks(ctx, tsk, cfg, depth)
	} else {
		result, err = o.executeSingle(ctx, tsk, cfg)
	}

	if err != nil {
		o.emit(func(l Listener) { l.OnTaskError(tsk.ID, err) })
		recordRun(ctx, result, err)
		return result, err
	}
	o.emit(func(l Listener) { l.OnTaskEnd(tsk.ID, result) })
	recordRun(ctx, result, nil)
	return result, nil
}

// executeSingle runs the task's own pipeline: optional planning, then
// either the retry loop or a single execution pass.
func (o *Orchestrator) executeSingle(ctx context.Context, tsk *task.Task, cfg ExecutionConfig) (result *Result, err error) {
	if !cfg.DryRun {
		if err := o.repo.SetStatus(tsk.ID, task.StatusInProgress); err != nil {
			return nil, fmt.Errorf("mark task %s in progress: %w", tsk.ID, err)
		}
	}
	defer func() {
		o.landStatus(tsk.ID, cfg, result, err)
	}()

	tracker := o.newTracker(cfg.WorkDir)
	result = &Result{TaskID: tsk.ID}

	plan := tsk.Plan
	if cfg.Plan {
		adapter, aerr := o.newAdapter(cfg.Tool, executor.Options{
			WorkDir: cfg.WorkDir,
			Output:  o.output,
			Logger:  o.logger,
		})
		if aerr != nil {
			return result, aerr
		}
		generated, perr := o.runPlanning(ctx, tsk, adapter, tracker, cfg)
		if perr != nil {
			return result, perr
		}
		if generated != "" {
			plan = generated
		}
	}
	result.Plan = plan

	if cfg.MaxRetries > 1 || cfg.Review {
		err = o.runWithRetries(ctx, tsk, tracker, cfg, result, plan)
	} else {
		err = o.runSinglePass(ctx, tsk, tracker, cfg, result, plan)
	}
	return result, err
}

// landStatus persists the task's terminal status: completed on success,
// todo on everything else. Dry-run writes nothing. A failed write is
// logged; there is nothing else safe to do with it.
func (o *Orchestrator) landStatus(taskID string, cfg ExecutionConfig, result *Result, err error) {
	if cfg.DryRun {
		return
	}
	status := task.StatusTodo
	if err == nil && result != nil && result.Success {
		status = task.StatusCompleted
	}
	if serr := o.repo.SetStatus(taskID, status); serr != nil {
		o.logger.Warn("failed to persist final task status", "task", taskID, "status", status, "error", serr)
	}
}

// runMetrics holds lazily-initialized OTel instruments for task runs.
var runMetrics struct {
	runs     metric.Int64Counter
	attempts metric.Int64Counter
}

var runMetricsOnce sync.Once

func initRunMetrics() {
	m := telemetry.Meter("github.com/pablasso/sherpa/orchestrator")
	runMetrics.runs, _ = m.Int64Counter("sherpa.orchestrator.runs",
		metric.WithDescription("Task executions by outcome"),
		metric.WithUnit("{run}"),
	)
	runMetrics.attempts, _ = m.Int64Counter("sherpa.orchestrator.attempts",
		metric.WithDescription("Execution attempts by tool and result"),
		metric.WithUnit("{attempt}"),
	)
}

func recordRun(ctx context.Context, result *Result, err error) {
	if runMetrics.runs == nil {
		return
	}

	outcome := "failed"
	switch {
	case err != nil:
		outcome = "error"
	case result != nil && result.Success:
		outcome = "completed"
	}
	runMetrics.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("sherpa.run.outcome", outcome)))

	if result == nil {
		return
	}
	for _, attempt := range result.Attempts {
		runMetrics.attempts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("sherpa.attempt.tool", string(attempt.Tool)),
			attribute.Bool("sherpa.attempt.success", attempt.Success),
		))
	}
}
