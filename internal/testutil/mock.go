// Package testutil provides shared test doubles for packages that shell out
// through a CommandContext seam.
package testutil

import (
	"context"
	"os/exec"
	"strings"
)

// MockCommandFunc returns a command factory whose commands print the given
// output and exit zero. Swap it into a package's CommandContext var, for
// example agent.CommandContext = testutil.MockCommandFunc(jsonResponse).
func MockCommandFunc(output string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "echo", "-n", output)
	}
}

// FailingCommandFunc returns a command factory whose commands write the given
// text to stderr and exit nonzero.
func FailingCommandFunc(stderr string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		quoted := "'" + strings.ReplaceAll(stderr, "'", `'\''`) + "'"
		script := "echo -n " + quoted + " >&2; exit 1"
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
}
