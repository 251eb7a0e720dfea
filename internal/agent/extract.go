package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pablasso/sherpa/internal/task"
)

// ExtractTasks asks the agent to break a design or PRD document into
// discrete, sequenced tasks.
func ExtractTasks(ctx context.Context, a Agent, docContent string) (*task.ExtractionResult, error) {
	text, err := a.Complete(ctx, buildExtractionPrompt(docContent))
	if err != nil {
		return nil, fmt.Errorf("task extraction failed: %w", err)
	}

	jsonData, err := ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("failed to extract JSON from agent response: %w", err)
	}

	var result task.ExtractionResult
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, fmt.Errorf("failed to parse agent response: %w", err)
	}

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction result: %w", err)
	}

	return &result, nil
}

// buildExtractionPrompt creates the prompt for task extraction from a document.
func buildExtractionPrompt(docContent string) string {
	return fmt.Sprintf(`You are a technical project planner. Analyze this document and extract discrete implementation tasks.

DOCUMENT:
%s

OUTPUT REQUIREMENTS:
Return a JSON object with this exact structure:
{
  "tasks": [
    {
      "title": "Short imperative title (e.g., 'Implement user login endpoint')",
      "content": "Detailed description of what needs to be done. Include relevant context from the document.",
      "acceptanceCriteria": [
        "Specific, verifiable criterion",
        "Another measurable criterion"
      ],
      "verifyCommands": [
        "shell command whose exit code proves the criteria, e.g. 'npm test'"
      ]
    }
  ]
}

TASK GUIDELINES:
- Tasks must be completable in sequence (later tasks can depend on earlier ones)
- Acceptance criteria must be verifiable by an agent working alone
- Prefer criteria that can be checked with commands (tests, type checks, lint)
- verifyCommands may be empty when no runnable check exists
- Order tasks by implementation dependency

Return ONLY the JSON, no markdown formatting or explanation.`, docContent)
}
