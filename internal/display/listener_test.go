package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/orchestrator"
)

func TestListener_TaskLifecycle(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	l := NewListener(d, 3)

	l.OnTaskStart("t01", "Add retry logic")
	if d.state.TaskID != "t01" || d.state.Status != StatusRunning {
		t.Errorf("state after start = %+v", d.state)
	}

	l.OnPhase("t01", orchestrator.PhaseExecuting)
	if d.state.Phase != "executing" {
		t.Errorf("Phase = %q", d.state.Phase)
	}

	l.OnAttemptStart("t01", 1, executor.ToolClaude, "sonnet")
	if d.state.Attempt != 1 || d.state.MaxAttempts != 3 {
		t.Errorf("attempt state = %+v", d.state)
	}

	l.OnTaskEnd("t01", &orchestrator.Result{
		TaskID:   "t01",
		Success:  true,
		Attempts: []orchestrator.Attempt{{Number: 1, Success: true}},
	})
	if d.state.Status != StatusCompleted {
		t.Errorf("Status = %v, want Completed", d.state.Status)
	}
	out := buf.String()
	if !strings.Contains(out, "✓ t01 completed (1 attempt)") {
		t.Errorf("output missing completion line:\n%s", out)
	}
}

func TestListener_FailedAttemptPrintsError(t *testing.T) {
	var buf bytes.Buffer
	l := NewListener(New(&buf), 3)

	l.OnTaskStart("t01", "Task")
	l.OnAttemptEnd("t01", orchestrator.Attempt{
		Number: 1,
		Error:  "verification command failed: go test ./...\nFAIL github.com/x/y",
	})

	out := buf.String()
	if !strings.Contains(out, "attempt 1 failed") {
		t.Errorf("output missing failure line:\n%s", out)
	}
	// Only the first line of a multi-line error appears.
	if strings.Contains(out, "FAIL github.com/x/y") {
		t.Errorf("error detail should be truncated to one line:\n%s", out)
	}
}

func TestListener_RetryAnnounced(t *testing.T) {
	var buf bytes.Buffer
	l := NewListener(New(&buf), 5)

	l.OnTaskStart("t01", "Task")
	l.OnAttemptStart("t01", 1, executor.ToolClaude, "")
	if strings.Contains(buf.String(), "attempt 1/5") {
		t.Error("the first attempt is not a retry")
	}

	l.OnAttemptStart("t01", 2, executor.ToolClaude, "opus")
	if !strings.Contains(buf.String(), "↻ t01: attempt 2/5") {
		t.Errorf("retry should be announced:\n%s", buf.String())
	}
}

func TestListener_FailureSummary(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	l := NewListener(d, 2)

	l.OnTaskStart("t01", "Task")
	l.OnTaskEnd("t01", &orchestrator.Result{
		TaskID: "t01",
		Attempts: []orchestrator.Attempt{
			{Number: 1}, {Number: 2},
		},
	})

	if d.state.Status != StatusFailed {
		t.Errorf("Status = %v, want Failed", d.state.Status)
	}
	if !strings.Contains(buf.String(), "✗ t01 did not complete (2 attempts)") {
		t.Errorf("output missing failure summary:\n%s", buf.String())
	}
}

func TestListener_ParentCompletionHasNoAttemptCount(t *testing.T) {
	var buf bytes.Buffer
	l := NewListener(New(&buf), 3)

	l.OnTaskStart("p01", "Parent")
	l.OnTaskEnd("p01", &orchestrator.Result{TaskID: "p01", Success: true})

	out := buf.String()
	if !strings.Contains(out, "✓ p01 completed") {
		t.Errorf("output missing completion:\n%s", out)
	}
	if strings.Contains(out, "0 attempts") {
		t.Errorf("parent summary should not count attempts:\n%s", out)
	}
}

func TestListener_TaskError(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	l := NewListener(d, 3)

	l.OnTaskStart("t01", "Task")
	l.OnTaskError("t01", errors.New("load task: not found"))

	if d.state.Status != StatusFailed {
		t.Errorf("Status = %v, want Failed", d.state.Status)
	}
	if !strings.Contains(buf.String(), "✗ t01: load task: not found") {
		t.Errorf("output missing error line:\n%s", buf.String())
	}
}
