package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/orchestrator"
)

// Message types for orchestrator events

// TaskStartedMsg is sent when a task (or one of its subtasks) begins.
type TaskStartedMsg struct {
	TaskID string
	Title  string
}

// PhaseMsg is sent when a pipeline phase begins.
type PhaseMsg struct {
	TaskID string
	Phase  orchestrator.Phase
}

// AttemptStartedMsg is sent before each execute+verify cycle.
type AttemptStartedMsg struct {
	TaskID string
	Number int
	Tool   executor.Tool
	Model  string
}

// AttemptFinishedMsg carries a completed attempt record.
type AttemptFinishedMsg struct {
	TaskID  string
	Attempt orchestrator.Attempt
}

// TaskFinishedMsg is sent when a task finishes without a fatal error.
// During subtask runs one arrives per child before the parent's.
type TaskFinishedMsg struct {
	TaskID   string
	Success  bool
	Attempts int
}

// TaskErroredMsg is sent when a task aborts with a fatal error.
type TaskErroredMsg struct {
	TaskID string
	Err    error
}

// OutputChunkMsg contains a chunk of agent output for the tail view.
type OutputChunkMsg struct {
	Chunk string
}

// RunStartedMsg signals that the run goroutine has started and provides
// a cancel handle for graceful shutdown.
type RunStartedMsg struct {
	Cancel context.CancelFunc
}

// RunDoneMsg signals that the run has finished, one way or another.
type RunDoneMsg struct {
	Result *orchestrator.Result
	Err    error
}

// tickMsg is used for elapsed time updates.
type tickMsg time.Time

// Listener forwards orchestrator events into the monitor's event channel
// as Bubble Tea messages. Sends never block: when the channel is full the
// event is dropped, because the run always outranks its display.
type Listener struct {
	events chan<- tea.Msg
}

// OnTaskStart implements orchestrator.Listener.
func (l *Listener) OnTaskStart(taskID, title string) {
	l.send(TaskStartedMsg{TaskID: taskID, Title: title})
}

// OnPhase implements orchestrator.Listener.
func (l *Listener) OnPhase(taskID string, phase orchestrator.Phase) {
	l.send(PhaseMsg{TaskID: taskID, Phase: phase})
}

// OnAttemptStart implements orchestrator.Listener.
func (l *Listener) OnAttemptStart(taskID string, attempt int, tool executor.Tool, model string) {
	l.send(AttemptStartedMsg{TaskID: taskID, Number: attempt, Tool: tool, Model: model})
}

// OnAttemptEnd implements orchestrator.Listener.
func (l *Listener) OnAttemptEnd(taskID string, attempt orchestrator.Attempt) {
	l.send(AttemptFinishedMsg{TaskID: taskID, Attempt: attempt})
}

// OnTaskEnd implements orchestrator.Listener.
func (l *Listener) OnTaskEnd(taskID string, result *orchestrator.Result) {
	attempts := 0
	if result != nil {
		attempts = len(result.Attempts)
	}
	success := result != nil && result.Success
	l.send(TaskFinishedMsg{TaskID: taskID, Success: success, Attempts: attempts})
}

// OnTaskError implements orchestrator.Listener.
func (l *Listener) OnTaskError(taskID string, err error) {
	l.send(TaskErroredMsg{TaskID: taskID, Err: err})
}

func (l *Listener) send(msg tea.Msg) {
	select {
	case l.events <- msg:
	default:
	}
}

var _ orchestrator.Listener = (*Listener)(nil)
