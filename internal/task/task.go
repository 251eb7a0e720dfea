// Package task defines the task model and its persistence contract.
package task

import (
	"path/filepath"
	"time"
)

// Project state directory layout. Everything sherpa persists lives under
// StateDirName at the working directory root.
const (
	StateDirName = ".sherpa"
	TasksDirName = "tasks"
	PlansDirName = "plans"
	RunsDirName  = "runs"
)

// StateDir returns the state directory under workDir.
func StateDir(workDir string) string {
	return filepath.Join(workDir, StateDirName)
}

// PlanFilePath returns the deterministic plan file location for a task.
// The planning prompt instructs the agent to write here, and the
// orchestrator polls this path after each planning invocation.
func PlanFilePath(workDir, taskID string) string {
	return filepath.Join(workDir, StateDirName, PlansDirName, taskID+".md")
}

// Status is the lifecycle state of a task.
type Status string

// Task status values. A task at rest is always todo or completed;
// in-progress is only ever held while an execution is underway.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task represents a single unit of work for the coding agent.
type Task struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	AcceptanceCriteria []string  `json:"acceptanceCriteria,omitempty"`
	VerifyCommands     []string  `json:"verifyCommands,omitempty"`
	Status             Status    `json:"status"`
	ParentID           string    `json:"parentId,omitempty"`
	SubtaskIDs         []string  `json:"subtaskIds,omitempty"`
	Plan               string    `json:"plan,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// HasSubtasks reports whether the task has child tasks.
func (t *Task) HasSubtasks() bool {
	return len(t.SubtaskIDs) > 0
}
