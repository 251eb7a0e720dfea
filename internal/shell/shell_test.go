package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExecCapturesStdout(t *testing.T) {
	sh := New()

	result, err := sh.Exec(context.Background(), t.TempDir(), "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("stdout = %q, want %q", result.Stdout, "hello")
	}
	if result.Stderr != "" {
		t.Errorf("stderr = %q, want empty", result.Stderr)
	}
}

func TestExecCapturesStderrOnFailure(t *testing.T) {
	sh := New()

	result, err := sh.Exec(context.Background(), t.TempDir(), "echo broken >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for nonzero exit")
	}
	if strings.TrimSpace(result.Stderr) != "broken" {
		t.Errorf("stderr = %q, want %q", result.Stderr, "broken")
	}
}

func TestExecRunsInGivenDirectory(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("failed to resolve symlinks: %v", err)
	}

	if err := os.WriteFile(filepath.Join(resolved, "marker.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}

	sh := New()
	result, err := sh.Exec(context.Background(), resolved, "ls")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, "marker.txt") {
		t.Errorf("expected marker.txt in output, got %q", result.Stdout)
	}
}

func TestExecHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sh := New()
	_, err := sh.Exec(ctx, t.TempDir(), "sleep 10")
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestCombined(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected string
	}{
		{"both", Result{Stdout: "out", Stderr: "err"}, "out\nerr"},
		{"stdout only", Result{Stdout: "out"}, "out"},
		{"stderr only", Result{Stderr: "err"}, "err"},
		{"empty", Result{}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.result.Combined(); got != tc.expected {
				t.Errorf("Combined() = %q, want %q", got, tc.expected)
			}
		})
	}
}
