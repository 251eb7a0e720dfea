// Package progress records orchestrator runs as JSON Lines journals under
// .sherpa/runs/ and reads them back for history reporting. One file per
// task; every run appends with its own run ID, so a task's full execution
// history stays in a single append-only file.
package progress

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/orchestrator"
	"github.com/pablasso/sherpa/internal/task"
)

// Event name constants used in journal entries.
const (
	EventTaskStarted     = "task_started"
	EventPhaseChanged    = "phase_changed"
	EventAttemptStarted  = "attempt_started"
	EventAttemptFinished = "attempt_finished"
	EventTaskFinished    = "task_finished"
	EventTaskErrored     = "task_errored"
)

// Entry is a single journal line.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Event     string         `json:"event"`
	TaskID    string         `json:"task_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Journal is an orchestrator.Listener that appends one JSON line per
// event. Write failures are logged and swallowed; journaling must never
// disturb a run.
type Journal struct {
	dir    string
	runID  string
	logger *slog.Logger
}

// NewJournal creates a journal writing under workDir's state directory.
func NewJournal(workDir string, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default().With("component", "progress")
	}
	return &Journal{
		dir:    filepath.Join(task.StateDir(workDir), task.RunsDirName),
		runID:  uuid.NewString(),
		logger: logger,
	}
}

// RunID returns the identifier stamped on every entry this journal writes.
func (j *Journal) RunID() string {
	return j.runID
}

// JournalPath returns the journal file for a task.
func JournalPath(workDir, taskID string) string {
	return filepath.Join(task.StateDir(workDir), task.RunsDirName, taskID+".jsonl")
}

func (j *Journal) append(taskID, event string, data map[string]any) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		RunID:     j.runID,
		Event:     event,
		TaskID:    taskID,
		Data:      data,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		j.logger.Warn("failed to encode journal entry", "event", event, "error", err)
		return
	}
	line = append(line, '\n')

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		j.logger.Warn("failed to create runs directory", "error", err)
		return
	}
	path := filepath.Join(j.dir, taskID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		j.logger.Warn("failed to open journal", "path", path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		j.logger.Warn("failed to write journal entry", "path", path, "error", err)
	}
}

func (j *Journal) OnTaskStart(taskID, title string) {
	j.append(taskID, EventTaskStarted, map[string]any{"title": title})
}

func (j *Journal) OnPhase(taskID string, phase orchestrator.Phase) {
	j.append(taskID, EventPhaseChanged, map[string]any{"phase": string(phase)})
}

func (j *Journal) OnAttemptStart(taskID string, attempt int, tool executor.Tool, model string) {
	j.append(taskID, EventAttemptStarted, map[string]any{
		"attempt": attempt,
		"tool":    string(tool),
		"model":   model,
	})
}

func (j *Journal) OnAttemptEnd(taskID string, attempt orchestrator.Attempt) {
	data := map[string]any{
		"attempt":     attempt.Number,
		"success":     attempt.Success,
		"duration_ms": attempt.Duration.Milliseconds(),
	}
	if attempt.Error != "" {
		data["error"] = attempt.Error
	}
	if attempt.Commit != nil && attempt.Commit.Hash != "" {
		data["commit"] = attempt.Commit.Hash
	}
	j.append(taskID, EventAttemptFinished, data)
}

func (j *Journal) OnTaskEnd(taskID string, result *orchestrator.Result) {
	data := map[string]any{"success": false}
	if result != nil {
		data["success"] = result.Success
		data["attempts"] = len(result.Attempts)
	}
	j.append(taskID, EventTaskFinished, data)
}

func (j *Journal) OnTaskError(taskID string, err error) {
	j.append(taskID, EventTaskErrored, map[string]any{"error": err.Error()})
}
