package orchestrator

import (
	"errors"
	"fmt"

	"github.com/pablasso/sherpa/internal/executor"
)

// ErrDepthExceeded is returned when subtask nesting goes past
// maxSubtaskDepth levels.
var ErrDepthExceeded = errors.New("subtask recursion depth exceeded")

// VerificationError reports the first failing verification command.
// It is recorded on the attempt and retried locally, never propagated
// out of the run.
type VerificationError struct {
	Command string
	Output  string
}

func (e *VerificationError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("verification command failed: %s", e.Command)
	}
	return fmt.Sprintf("verification command failed: %s\n%s", e.Command, e.Output)
}

// ReviewRejectionError carries reviewer feedback for a rejected attempt.
// Rejection advances the attempt counter exactly like a verification
// failure.
type ReviewRejectionError struct {
	Feedback string
}

func (e *ReviewRejectionError) Error() string {
	return fmt.Sprintf("review rejected the changes: %s", e.Feedback)
}

// ProcessError wraps an agent process spawn failure or nonzero exit.
type ProcessError struct {
	Tool executor.Tool
	Err  error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s process failed: %v", e.Tool, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
