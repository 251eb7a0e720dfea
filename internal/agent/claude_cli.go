package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// CommandContext is the function used to create exec.Cmd instances.
// It can be replaced in tests to mock command execution.
var CommandContext = exec.CommandContext

// DefaultCompletionTimeout is the maximum time allowed for a CLI completion.
const DefaultCompletionTimeout = 5 * time.Minute

// claudeResponse represents the JSON structure returned by Claude Code CLI
// when using --output-format json.
type claudeResponse struct {
	Type    string `json:"type"`
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}

// IsClaudeAvailable checks if the claude command exists in PATH.
func IsClaudeAvailable() bool {
	_, err := exec.LookPath("claude")
	return err == nil
}

// CLIAgent completes prompts by shelling out to the Claude Code CLI in print
// mode. It needs no API key, only an authenticated claude installation.
type CLIAgent struct {
	workDir string
	model   string
}

// NewCLIAgent creates a CLI-backed agent running in workDir. An empty model
// uses the CLI's configured default.
func NewCLIAgent(workDir, model string) *CLIAgent {
	return &CLIAgent{workDir: workDir, model: model}
}

// Complete runs `claude -p` with the prompt and returns the result text.
// If the context has no deadline, DefaultCompletionTimeout is applied.
func (c *CLIAgent) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := buildOptions(opts)

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCompletionTimeout)
		defer cancel()
	}

	// The CLI has no separate system-prompt channel in print mode, so a
	// system prompt is prepended to the user prompt.
	if o.SystemPrompt != "" {
		prompt = o.SystemPrompt + "\n\n" + prompt
	}

	// --dangerously-skip-permissions is required for non-interactive use.
	// This is safe here because we only use the -p flag with a controlled
	// prompt (no file access or tool use).
	args := []string{"-p", prompt, "--output-format", "json", "--dangerously-skip-permissions"}
	model := c.model
	if o.Model != "" {
		model = o.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	cmd := CommandContext(ctx, "claude", args...)
	if c.workDir != "" {
		cmd.Dir = c.workDir
	}

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.New("claude completion timed out")
		}
		if ctx.Err() == context.Canceled {
			return "", errors.New("claude completion was cancelled")
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("claude command failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("failed to execute claude command: %w", err)
	}

	var resp claudeResponse
	if err := json.Unmarshal(output, &resp); err != nil || resp.Type != "result" {
		// Older CLI versions print the result without the wrapper.
		return string(output), nil
	}
	if resp.IsError {
		return "", errors.New("claude returned an error: " + resp.Result)
	}
	return resp.Result, nil
}
