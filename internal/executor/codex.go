package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CodexAdapter executes tasks via the Codex CLI in non-interactive mode.
//
// Codex has no session resumption. When ContinueLastSession is set the
// adapter starts a fresh process; retry messages carry the previous
// attempt's error context to make up for the lost conversation.
type CodexAdapter struct {
	workDir string
	output  OutputWriter
	logger  *slog.Logger
}

// NewCodexAdapter creates an adapter for the codex CLI.
func NewCodexAdapter(opts Options) *CodexAdapter {
	return &CodexAdapter{
		workDir: opts.WorkDir,
		output:  opts.Output,
		logger:  opts.logger(),
	}
}

// Execute spawns codex exec with the instruction message and blocks
// until it exits.
func (a *CodexAdapter) Execute(ctx context.Context, message string, dryRun bool, cfg Config) error {
	args := []string{"exec", "--full-auto"}
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	args = append(args, message)

	if cfg.ContinueLastSession {
		a.logger.Debug("codex does not support session resume, starting fresh")
	}

	if dryRun {
		a.logger.Info("dry run: skipping agent spawn", "tool", "codex", "model", cfg.Model)
		return nil
	}

	cmd := CommandContext(ctx, "codex", args...)
	cmd.Dir = a.workDir
	cmd.Stdout, cmd.Stderr = a.streams()

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("codex exited with error: %w", err)
	}
	return nil
}

func (a *CodexAdapter) streams() (io.Writer, io.Writer) {
	if a.output != nil {
		return a.output.Stdout(), a.output.Stderr()
	}
	return os.Stdout, os.Stderr
}
