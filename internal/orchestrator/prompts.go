package orchestrator

import (
	"fmt"
	"strings"

	"github.com/pablasso/sherpa/internal/task"
)

// buildPlanPrompt instructs the agent to study the task and write a plan
// file, without implementing anything.
func buildPlanPrompt(tsk *task.Task, planPath, projectContext, feedback string) string {
	var sb strings.Builder

	sb.WriteString("You are planning a task before any code is written.\n\n")

	if projectContext != "" {
		sb.WriteString("## Project Context\n")
		sb.WriteString(projectContext)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Your Task\n")
	sb.WriteString(fmt.Sprintf("**ID**: %s\n", tsk.ID))
	sb.WriteString(fmt.Sprintf("**Title**: %s\n\n", tsk.Title))
	sb.WriteString(tsk.Content)
	sb.WriteString("\n\n")

	if len(tsk.AcceptanceCriteria) > 0 {
		sb.WriteString("## Acceptance Criteria\n")
		for i, criterion := range tsk.AcceptanceCriteria {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, criterion))
		}
		sb.WriteString("\n")
	}

	if feedback != "" {
		sb.WriteString("## Reviewer Feedback\n")
		sb.WriteString("A human reviewed your previous plan and asked for changes:\n\n")
		sb.WriteString(feedback)
		sb.WriteString("\n\nRevise the plan to address this feedback.\n\n")
	}

	sb.WriteString("## Instructions\n")
	sb.WriteString("1. Study the relevant parts of the codebase\n")
	sb.WriteString(fmt.Sprintf("2. Write an implementation plan to the file `%s`: the steps you will take, the files you expect to touch, and any risks or open questions\n", planPath))
	sb.WriteString("3. Keep the plan concise and concrete\n")
	sb.WriteString("4. Do NOT implement the task or modify any other files\n\n")

	sb.WriteString(fmt.Sprintf("IMPORTANT: The plan MUST be written to `%s`. Create parent directories if needed.\n", planPath))

	return sb.String()
}

// buildExecutionPrompt constructs the instruction message for one attempt.
func buildExecutionPrompt(tsk *task.Task, cfg ExecutionConfig, plan, retryContext string, attempt int) string {
	var sb strings.Builder

	sb.WriteString("You are executing a task as part of an automated workflow.\n\n")

	if cfg.ProjectContext != "" {
		sb.WriteString("## Project Context\n")
		sb.WriteString(cfg.ProjectContext)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Your Task\n")
	sb.WriteString(fmt.Sprintf("**ID**: %s\n", tsk.ID))
	sb.WriteString(fmt.Sprintf("**Title**: %s\n", tsk.Title))
	sb.WriteString(fmt.Sprintf("**Attempt**: %d of %d\n\n", attempt, cfg.MaxRetries))
	if cfg.MessageOverride != "" {
		sb.WriteString(cfg.MessageOverride)
	} else {
		sb.WriteString(tsk.Content)
	}
	sb.WriteString("\n\n")

	if plan != "" {
		sb.WriteString("## Implementation Plan\n")
		sb.WriteString("Follow this plan; deviate only when it conflicts with what you find in the code:\n\n")
		sb.WriteString(plan)
		sb.WriteString("\n\n")
	}

	if retryContext != "" {
		sb.WriteString("## Previous Attempt Failed\n")
		sb.WriteString("The last attempt did not pass. The error was:\n\n")
		sb.WriteString(retryContext)
		sb.WriteString("\n\n")
		sb.WriteString("Investigate what went wrong before changing anything. ")
		sb.WriteString("Fix the root cause rather than working around the symptom, ")
		sb.WriteString("consider an alternative approach if the last one was a dead end, ")
		sb.WriteString("and re-run the failing checks yourself before finishing.\n\n")
	}

	if len(tsk.AcceptanceCriteria) > 0 {
		sb.WriteString("## Acceptance Criteria\n")
		sb.WriteString("You MUST verify ALL of the following before considering the task complete:\n")
		for i, criterion := range tsk.AcceptanceCriteria {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, criterion))
		}
		sb.WriteString("\n")
	}

	if len(cfg.VerifyCommands) > 0 {
		sb.WriteString("## Verification\n")
		sb.WriteString("These commands will run after you finish and must all exit zero:\n")
		for _, command := range cfg.VerifyCommands {
			sb.WriteString(fmt.Sprintf("- `%s`\n", command))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Instructions\n")
	sb.WriteString("1. Implement the task as described\n")
	sb.WriteString("2. Verify ALL acceptance criteria are met\n")
	sb.WriteString("3. Run the verification commands yourself and fix any failures\n")
	sb.WriteString("4. Commit your changes with a descriptive message when you are confident in them\n\n")

	sb.WriteString("IMPORTANT: Do not declare success unless the work is complete and verified.\n")

	return sb.String()
}

const reviewSystemPrompt = "You are a strict but pragmatic senior engineer reviewing " +
	"changes made by a coding agent. Judge whether the diff accomplishes the task. " +
	"Flag only real problems: incorrect behavior, missing requirements, broken or " +
	"missing tests. Style nits alone are not grounds for rejection."

// buildReviewPrompt asks the agent for a structured verdict on the diff.
func buildReviewPrompt(tsk *task.Task, plan, projectContext, diff string) string {
	var sb strings.Builder

	sb.WriteString("Review the following changes made for a task.\n\n")

	if projectContext != "" {
		sb.WriteString("## Project Context\n")
		sb.WriteString(projectContext)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Task\n")
	sb.WriteString(fmt.Sprintf("**Title**: %s\n\n", tsk.Title))
	sb.WriteString(tsk.Content)
	sb.WriteString("\n\n")

	if len(tsk.AcceptanceCriteria) > 0 {
		sb.WriteString("## Acceptance Criteria\n")
		for i, criterion := range tsk.AcceptanceCriteria {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, criterion))
		}
		sb.WriteString("\n")
	}

	if plan != "" {
		sb.WriteString("## Implementation Plan\n")
		sb.WriteString(plan)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Changes\n")
	sb.WriteString("```diff\n")
	sb.WriteString(diff)
	sb.WriteString("\n```\n\n")

	sb.WriteString("Respond with ONLY valid JSON matching this structure:\n")
	sb.WriteString(`{"approved": true, "feedback": "one short paragraph explaining your verdict"}` + "\n\n")
	sb.WriteString("Set approved to false only when the changes fail the task; then feedback must say what to fix.\n")

	return sb.String()
}
