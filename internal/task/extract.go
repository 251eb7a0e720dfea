package task

import (
	"errors"
	"fmt"
)

// ExtractionResult represents the structured response from AI task extraction.
type ExtractionResult struct {
	Tasks []ExtractedTask `json:"tasks"`
}

// ExtractedTask represents a single task extracted by the AI.
type ExtractedTask struct {
	Title              string   `json:"title"`
	Content            string   `json:"content"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
	VerifyCommands     []string `json:"verifyCommands"`
}

// Validate checks that the extraction result contains valid data.
func (r *ExtractionResult) Validate() error {
	if len(r.Tasks) == 0 {
		return errors.New("no tasks extracted")
	}
	for i, t := range r.Tasks {
		if t.Title == "" {
			return fmt.Errorf("task %d missing title", i+1)
		}
		if t.Content == "" {
			return fmt.Errorf("task %d (%s) missing content", i+1, t.Title)
		}
	}
	return nil
}
