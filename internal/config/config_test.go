package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, workDir, content string) {
	t.Helper()
	path := Path(workDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() with no file should succeed: %v", err)
	}

	if cfg.Tool != "claude" {
		t.Errorf("Tool = %q, want claude", cfg.Tool)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if !cfg.Plan || !cfg.Review || !cfg.AutoCommit || !cfg.Subtasks {
		t.Errorf("pipeline toggles should default on: %+v", cfg)
	}
	if cfg.Model != "" {
		t.Errorf("Model should default empty, got %q", cfg.Model)
	}
	if len(cfg.VerifyCommands) != 0 {
		t.Errorf("VerifyCommands should default empty, got %v", cfg.VerifyCommands)
	}
}

func TestLoad_FromFile(t *testing.T) {
	workDir := t.TempDir()
	writeConfig(t, workDir, `tool: codex
model: gpt-5
max-retries: 5
review: false
try-models:
  - sonnet
  - claude:opus
verify:
  - go build ./...
  - go test ./...
`)

	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Tool != "codex" {
		t.Errorf("Tool = %q, want codex", cfg.Tool)
	}
	if cfg.Model != "gpt-5" {
		t.Errorf("Model = %q, want gpt-5", cfg.Model)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.Review {
		t.Error("Review should be off")
	}
	if !cfg.Plan {
		t.Error("Plan should keep its default when the file omits it")
	}
	if len(cfg.TryModels) != 2 || cfg.TryModels[1] != "claude:opus" {
		t.Errorf("TryModels = %v", cfg.TryModels)
	}
	if len(cfg.VerifyCommands) != 2 || cfg.VerifyCommands[0] != "go build ./..." {
		t.Errorf("VerifyCommands = %v", cfg.VerifyCommands)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	workDir := t.TempDir()
	writeConfig(t, workDir, "max-retries: 5\ntool: claude\n")
	t.Setenv("SHERPA_MAX_RETRIES", "7")
	t.Setenv("SHERPA_TOOL", "codex")
	t.Setenv("SHERPA_AUTO_COMMIT", "false")

	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want env value 7", cfg.MaxRetries)
	}
	if cfg.Tool != "codex" {
		t.Errorf("Tool = %q, want env value codex", cfg.Tool)
	}
	if cfg.AutoCommit {
		t.Error("AutoCommit should be disabled by env")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	workDir := t.TempDir()
	writeConfig(t, workDir, "tool: [unclosed\n")

	if _, err := Load(workDir); err == nil {
		t.Fatal("Load() should fail on malformed yaml")
	}
}

func TestLoad_RejectsZeroRetries(t *testing.T) {
	workDir := t.TempDir()
	writeConfig(t, workDir, "max-retries: 0\n")

	if _, err := Load(workDir); err == nil {
		t.Fatal("Load() should reject max-retries below 1")
	}
}

func TestWriteDefault(t *testing.T) {
	workDir := t.TempDir()

	if err := WriteDefault(workDir); err != nil {
		t.Fatalf("WriteDefault() returned error: %v", err)
	}

	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("the starter config should load cleanly: %v", err)
	}
	if cfg.Tool != DefaultTool || cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("starter config should carry the defaults: %+v", cfg)
	}

	// A second init must not clobber user edits.
	writeConfig(t, workDir, "tool: codex\n")
	if err := WriteDefault(workDir); err != nil {
		t.Fatalf("WriteDefault() on existing file: %v", err)
	}
	cfg, err = Load(workDir)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Tool != "codex" {
		t.Error("WriteDefault must not overwrite an existing config")
	}
}
