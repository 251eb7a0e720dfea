package executor

import (
	"context"
	"os/exec"
	"slices"
	"strings"
	"testing"

	"github.com/pablasso/sherpa/internal/testutil"
)

func TestCodexAdapter_Execute(t *testing.T) {
	originalCommandContext := CommandContext
	defer func() {
		CommandContext = originalCommandContext
	}()

	t.Run("builds exec args", func(t *testing.T) {
		var gotName string
		var gotArgs []string
		CommandContext = captureCommand(&gotName, &gotArgs)

		adapter := NewCodexAdapter(Options{WorkDir: t.TempDir()})
		err := adapter.Execute(context.Background(), "fix the bug", false, Config{})
		if err != nil {
			t.Fatalf("Execute() returned error: %v", err)
		}

		if gotName != "codex" {
			t.Errorf("command = %q, want codex", gotName)
		}
		if len(gotArgs) < 2 || gotArgs[0] != "exec" {
			t.Errorf("args should start with exec subcommand, got %v", gotArgs)
		}
		if !slices.Contains(gotArgs, "--full-auto") {
			t.Errorf("args should include --full-auto, got %v", gotArgs)
		}
		if gotArgs[len(gotArgs)-1] != "fix the bug" {
			t.Errorf("message should be the final arg, got %v", gotArgs)
		}
	})

	t.Run("model override", func(t *testing.T) {
		var gotName string
		var gotArgs []string
		CommandContext = captureCommand(&gotName, &gotArgs)

		adapter := NewCodexAdapter(Options{WorkDir: t.TempDir()})
		err := adapter.Execute(context.Background(), "msg", false, Config{Model: "o3"})
		if err != nil {
			t.Fatalf("Execute() returned error: %v", err)
		}

		idx := slices.Index(gotArgs, "--model")
		if idx == -1 || idx+1 >= len(gotArgs) || gotArgs[idx+1] != "o3" {
			t.Errorf("args should include --model o3, got %v", gotArgs)
		}
	})

	t.Run("no session flags", func(t *testing.T) {
		var gotName string
		var gotArgs []string
		CommandContext = captureCommand(&gotName, &gotArgs)

		adapter := NewCodexAdapter(Options{WorkDir: t.TempDir()})
		cfg := Config{SessionID: "sess-123", ContinueLastSession: true}
		err := adapter.Execute(context.Background(), "msg", false, cfg)
		if err != nil {
			t.Fatalf("Execute() returned error: %v", err)
		}

		if slices.Contains(gotArgs, "--continue") || slices.Contains(gotArgs, "--resume") {
			t.Errorf("codex should start fresh, got %v", gotArgs)
		}
	})

	t.Run("dry run spawns nothing", func(t *testing.T) {
		called := false
		CommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
			called = true
			return exec.CommandContext(ctx, "true")
		}

		adapter := NewCodexAdapter(Options{WorkDir: t.TempDir()})
		err := adapter.Execute(context.Background(), "msg", true, Config{})
		if err != nil {
			t.Fatalf("Execute() returned error: %v", err)
		}
		if called {
			t.Error("dry run should not spawn a process")
		}
	})

	t.Run("nonzero exit", func(t *testing.T) {
		CommandContext = testutil.FailingCommandFunc("boom")

		adapter := NewCodexAdapter(Options{WorkDir: t.TempDir()})
		err := adapter.Execute(context.Background(), "msg", false, Config{})
		if err == nil {
			t.Fatal("Execute() should return error on nonzero exit")
		}
		if !strings.Contains(err.Error(), "codex exited with error") {
			t.Errorf("error should indicate codex exit error, got: %v", err)
		}
	})
}
