// Package shell runs commands in a working directory and captures their output.
package shell

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandContext is the function used to create commands.
// It's a variable so tests can replace it with a mock.
var CommandContext = exec.CommandContext

// Result holds the captured output of a command.
type Result struct {
	Stdout string
	Stderr string
}

// Combined returns stdout followed by stderr, for diagnostics.
func (r Result) Combined() string {
	if r.Stdout == "" {
		return r.Stderr
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runner executes shell commands. The working directory is always explicit;
// implementations must not depend on the process's current directory.
type Runner interface {
	Exec(ctx context.Context, dir, command string) (Result, error)
}

// Shell runs commands through `sh -c` with captured output.
type Shell struct{}

// New returns a Runner backed by the system shell.
func New() Shell {
	return Shell{}
}

// Exec runs the command in dir and returns its output. The Result is valid
// even when err is non-nil: a failing command's stdout/stderr is how callers
// diagnose what went wrong.
func (Shell) Exec(ctx context.Context, dir, command string) (Result, error) {
	cmd := CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return Result{Stdout: stdout.String(), Stderr: stderr.String()}, err
}
