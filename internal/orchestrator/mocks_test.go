package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/pablasso/sherpa/internal/agent"
	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/git"
	"github.com/pablasso/sherpa/internal/shell"
	"github.com/pablasso/sherpa/internal/task"
)

// mockRepo is an in-memory task.Repository recording every status write.
type mockRepo struct {
	tasks    map[string]*task.Task
	statuses []task.Status
	plans    map[string]string
}

func newMockRepo(tasks ...*task.Task) *mockRepo {
	m := &mockRepo{tasks: make(map[string]*task.Task), plans: make(map[string]string)}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *mockRepo) Get(id string) (*task.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *mockRepo) Subtasks(id string) ([]*task.Task, error) {
	parent, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	var subs []*task.Task
	for _, childID := range parent.SubtaskIDs {
		child, err := m.Get(childID)
		if err != nil {
			return nil, err
		}
		subs = append(subs, child)
	}
	return subs, nil
}

func (m *mockRepo) SetStatus(id string, status task.Status) error {
	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}
	t.Status = status
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockRepo) SetPlan(id string, plan string) error {
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}
	m.tasks[id].Plan = plan
	m.plans[id] = plan
	return nil
}

func (m *mockRepo) Plan(id string) (string, error) {
	t, err := m.Get(id)
	if err != nil {
		return "", err
	}
	return t.Plan, nil
}

func (m *mockRepo) List(filter task.ListFilter) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range m.tasks {
		if filter.Status == "" || t.Status == filter.Status {
			out = append(out, t)
		}
	}
	return out, nil
}

// execCall records one adapter invocation.
type execCall struct {
	message string
	dryRun  bool
	cfg     executor.Config
}

// mockAdapter records Execute calls; fn scripts per-call behavior.
type mockAdapter struct {
	calls []execCall
	fn    func(call int, message string, dryRun bool, cfg executor.Config) error
}

func (m *mockAdapter) Execute(ctx context.Context, message string, dryRun bool, cfg executor.Config) error {
	n := len(m.calls)
	m.calls = append(m.calls, execCall{message: message, dryRun: dryRun, cfg: cfg})
	if m.fn != nil {
		return m.fn(n, message, dryRun, cfg)
	}
	return nil
}

// mockTracker is a scriptable GitTracker. With forbid set, any call
// fails the test; dry-run must never touch git.
type mockTracker struct {
	t      *testing.T
	forbid bool

	state       git.State
	captures    int
	diff        string
	diffErr     error
	info        *git.CommitInfo
	extractErr  error
	autoCommits []*git.CommitInfo
	planCommits []string
}

func (m *mockTracker) check(op string) {
	if m.forbid && m.t != nil {
		m.t.Errorf("unexpected git call: %s", op)
	}
}

func (m *mockTracker) Capture(ctx context.Context) git.State {
	m.check("Capture")
	m.captures++
	return m.state
}

func (m *mockTracker) ExtractCommitInfo(ctx context.Context, before, after git.State) (*git.CommitInfo, error) {
	m.check("ExtractCommitInfo")
	return m.info, m.extractErr
}

func (m *mockTracker) AutoCommit(ctx context.Context, info *git.CommitInfo) bool {
	m.check("AutoCommit")
	m.autoCommits = append(m.autoCommits, info)
	return true
}

func (m *mockTracker) CommitPaths(ctx context.Context, message string, paths ...string) error {
	m.check("CommitPaths")
	m.planCommits = append(m.planCommits, message)
	return nil
}

func (m *mockTracker) DiffSince(ctx context.Context, beforeHead string) (string, error) {
	m.check("DiffSince")
	return m.diff, m.diffErr
}

// mockShell records commands; fn scripts per-call outcomes.
type mockShell struct {
	t        *testing.T
	forbid   bool
	commands []string
	fn       func(call int, command string) (shell.Result, error)
}

func (m *mockShell) Exec(ctx context.Context, dir, command string) (shell.Result, error) {
	if m.forbid && m.t != nil {
		m.t.Errorf("unexpected shell call: %s", command)
	}
	n := len(m.commands)
	m.commands = append(m.commands, command)
	if m.fn != nil {
		return m.fn(n, command)
	}
	return shell.Result{}, nil
}

// mockAgent returns scripted responses in order, reusing the last one.
type mockAgent struct {
	responses []string
	err       error
	prompts   []string
}

func (m *mockAgent) Complete(ctx context.Context, prompt string, opts ...agent.Option) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	idx := len(m.prompts) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

// recordingListener captures event names in order.
type recordingListener struct {
	events   []string
	attempts []Attempt
}

func (r *recordingListener) OnTaskStart(taskID, title string) {
	r.events = append(r.events, "start:"+taskID)
}

func (r *recordingListener) OnPhase(taskID string, phase Phase) {
	r.events = append(r.events, "phase:"+string(phase))
}

func (r *recordingListener) OnAttemptStart(taskID string, attempt int, tool executor.Tool, model string) {
	r.events = append(r.events, fmt.Sprintf("attempt:%d", attempt))
}

func (r *recordingListener) OnAttemptEnd(taskID string, attempt Attempt) {
	r.attempts = append(r.attempts, attempt)
}

func (r *recordingListener) OnTaskEnd(taskID string, result *Result) {
	r.events = append(r.events, "end:"+taskID)
}

func (r *recordingListener) OnTaskError(taskID string, err error) {
	r.events = append(r.events, "error:"+taskID)
}

// panicListener panics on every callback.
type panicListener struct{}

func (panicListener) OnTaskStart(string, string) { panic("listener boom") }

func (panicListener) OnPhase(string, Phase) { panic("listener boom") }

func (panicListener) OnAttemptStart(string, int, executor.Tool, string) { panic("listener boom") }

func (panicListener) OnAttemptEnd(string, Attempt) { panic("listener boom") }

func (panicListener) OnTaskEnd(string, *Result) { panic("listener boom") }

func (panicListener) OnTaskError(string, error) { panic("listener boom") }

func testTask(id string) *task.Task {
	return &task.Task{
		ID:      id,
		Title:   "Test task " + id,
		Content: "Do the thing for " + id,
		Status:  task.StatusTodo,
	}
}

// newTestOrchestrator wires an orchestrator to the given mocks.
func newTestOrchestrator(repo *mockRepo, adapter *mockAdapter, tracker *mockTracker, sh *mockShell, ag agent.Agent, listeners ...Listener) *Orchestrator {
	o := New(Options{
		Repository: repo,
		Agent:      ag,
		Shell:      sh,
		Listeners:  listeners,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	o.newAdapter = func(tool executor.Tool, opts executor.Options) (executor.Adapter, error) {
		return adapter, nil
	}
	o.newTracker = func(dir string) GitTracker {
		return tracker
	}
	return o
}

func lastStatus(repo *mockRepo) task.Status {
	if len(repo.statuses) == 0 {
		return ""
	}
	return repo.statuses[len(repo.statuses)-1]
}
