package display

import (
	"fmt"
	"strings"

	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/orchestrator"
)

// Listener adapts orchestrator events onto a Display: state flows to the
// status line, attempt outcomes and final verdicts print above it.
type Listener struct {
	display     *Display
	maxAttempts int
}

// NewListener wires a Display to orchestrator events. maxAttempts feeds
// the "Attempt n/m" segment of the status line.
func NewListener(d *Display, maxAttempts int) *Listener {
	return &Listener{display: d, maxAttempts: maxAttempts}
}

func (l *Listener) OnTaskStart(taskID, title string) {
	l.display.UpdateTask(taskID, title)
	l.display.UpdateStatus(StatusRunning)
}

func (l *Listener) OnPhase(taskID string, phase orchestrator.Phase) {
	l.display.UpdatePhase(string(phase))
}

func (l *Listener) OnAttemptStart(taskID string, attempt int, tool executor.Tool, model string) {
	l.display.UpdateAttempt(attempt, l.maxAttempts)
	if attempt > 1 {
		l.display.PrintAbove("↻ %s: attempt %d/%d", taskID, attempt, l.maxAttempts)
	}
}

func (l *Listener) OnAttemptEnd(taskID string, attempt orchestrator.Attempt) {
	if attempt.Success {
		return
	}
	l.display.PrintAbove("✗ %s: attempt %d failed: %s", taskID, attempt.Number, firstLine(attempt.Error))
}

func (l *Listener) OnTaskEnd(taskID string, result *orchestrator.Result) {
	if result != nil && result.Success {
		l.display.UpdateStatus(StatusCompleted)
		// A parent driven by its subtasks has no attempts of its own.
		if len(result.Attempts) > 0 {
			l.display.PrintAbove("✓ %s completed (%s)", taskID, countAttempts(len(result.Attempts)))
		} else {
			l.display.PrintAbove("✓ %s completed", taskID)
		}
		return
	}
	attempts := 0
	if result != nil {
		attempts = len(result.Attempts)
	}
	l.display.UpdateStatus(StatusFailed)
	l.display.PrintAbove("✗ %s did not complete (%s)", taskID, countAttempts(attempts))
}

func (l *Listener) OnTaskError(taskID string, err error) {
	l.display.UpdateStatus(StatusFailed)
	l.display.PrintAbove("✗ %s: %s", taskID, firstLine(err.Error()))
}

func countAttempts(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
