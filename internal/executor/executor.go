// Package executor spawns coding agent CLI processes to carry out task
// instructions. Each supported tool gets an Adapter; the orchestrator
// picks one through New and drives it with a single message per attempt.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// CommandContext is the function used to create agent commands.
// It's a variable so tests can substitute a mock implementation.
var CommandContext = exec.CommandContext

// Tool identifies which coding agent CLI executes tasks.
type Tool string

const (
	// ToolClaude executes tasks via the Claude Code CLI.
	ToolClaude Tool = "claude"
	// ToolCodex executes tasks via the Codex CLI.
	ToolCodex Tool = "codex"
)

// ParseTool validates a tool name from flags or config.
// An empty name selects the default tool, claude.
func ParseTool(name string) (Tool, error) {
	switch Tool(name) {
	case "":
		return ToolClaude, nil
	case ToolClaude:
		return ToolClaude, nil
	case ToolCodex:
		return ToolCodex, nil
	default:
		return "", fmt.Errorf("unknown tool %q (supported: claude, codex)", name)
	}
}

// Config carries per-invocation settings for an adapter.
type Config struct {
	// Model overrides the tool's default model when non-empty.
	Model string
	// SessionID names a previous agent session to resume.
	SessionID string
	// ContinueLastSession asks the agent to pick up its previous
	// conversation instead of starting fresh. Tools without session
	// support start fresh anyway; callers compensate by embedding
	// prior-attempt context in the message.
	ContinueLastSession bool
}

// Adapter runs a coding agent process with a single instruction message.
// Execute blocks until the process exits and returns an error on spawn
// failure or nonzero exit. When dryRun is set, no process is spawned.
type Adapter interface {
	Execute(ctx context.Context, message string, dryRun bool, cfg Config) error
}

// Options configures adapter construction.
type Options struct {
	// WorkDir is the directory the agent process runs in.
	WorkDir string
	// Output receives the process's stdout and stderr. When nil the
	// process inherits the parent's streams.
	Output OutputWriter
	// Logger receives adapter diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default().With("component", "executor")
}

// New returns the adapter for the given tool.
func New(tool Tool, opts Options) (Adapter, error) {
	switch tool {
	case ToolClaude, "":
		return NewClaudeAdapter(opts), nil
	case ToolCodex:
		return NewCodexAdapter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported tool %q", tool)
	}
}
