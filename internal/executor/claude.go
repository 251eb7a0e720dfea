package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ClaudeAdapter executes tasks via the Claude Code CLI.
type ClaudeAdapter struct {
	workDir string
	output  OutputWriter
	logger  *slog.Logger
}

// NewClaudeAdapter creates an adapter for the claude CLI.
func NewClaudeAdapter(opts Options) *ClaudeAdapter {
	return &ClaudeAdapter{
		workDir: opts.WorkDir,
		output:  opts.Output,
		logger:  opts.logger(),
	}
}

// Execute spawns claude with the instruction message and blocks until it
// exits. The child owns the terminal for the duration; there is no
// timeout beyond context cancellation.
func (a *ClaudeAdapter) Execute(ctx context.Context, message string, dryRun bool, cfg Config) error {
	args := []string{"-p", message, "--dangerously-skip-permissions"}
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	if cfg.ContinueLastSession {
		if cfg.SessionID != "" {
			args = append(args, "--resume", cfg.SessionID)
		} else {
			args = append(args, "--continue")
		}
	}

	if dryRun {
		a.logger.Info("dry run: skipping agent spawn", "tool", "claude", "model", cfg.Model)
		return nil
	}

	cmd := CommandContext(ctx, "claude", args...)
	cmd.Dir = a.workDir
	cmd.Stdout, cmd.Stderr = a.streams()

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("claude exited with error: %w", err)
	}
	return nil
}

func (a *ClaudeAdapter) streams() (io.Writer, io.Writer) {
	if a.output != nil {
		return a.output.Stdout(), a.output.Stderr()
	}
	return os.Stdout, os.Stderr
}
