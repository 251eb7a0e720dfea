// Package config loads run settings from .sherpa/config.yaml with
// SHERPA_* environment overrides. Precedence: command-line flags (applied
// by the CLI layer) > environment > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pablasso/sherpa/internal/task"
)

// Configuration keys. Dashes map to underscores in environment variables,
// so max-retries is overridden with SHERPA_MAX_RETRIES.
const (
	KeyTool       = "tool"
	KeyModel      = "model"
	KeyMaxRetries = "max-retries"
	KeyTryModels  = "try-models"
	KeyVerify     = "verify"
	KeyPlan       = "plan"
	KeyReview     = "review"
	KeyAutoCommit = "auto-commit"
	KeySubtasks   = "subtasks"
)

const (
	DefaultTool       = "claude"
	DefaultMaxRetries = 3
)

// FileName is the config file name inside the state directory.
const FileName = "config.yaml"

// Config is the merged view of file, environment, and defaults. The CLI
// overlays explicitly-set flags on top before handing values to the
// orchestrator.
type Config struct {
	Tool           string
	Model          string
	MaxRetries     int
	TryModels      []string
	VerifyCommands []string
	Plan           bool
	Review         bool
	AutoCommit     bool
	Subtasks       bool
}

// Path returns the config file path for a working directory.
func Path(workDir string) string {
	return filepath.Join(task.StateDir(workDir), FileName)
}

// Load reads the config file under workDir and applies environment
// overrides. A missing file yields the defaults; a malformed one is an
// error.
func Load(workDir string) (*Config, error) {
	v := viper.New()
	path := Path(workDir)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SHERPA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg := &Config{
		Tool:           v.GetString(KeyTool),
		Model:          v.GetString(KeyModel),
		MaxRetries:     v.GetInt(KeyMaxRetries),
		TryModels:      v.GetStringSlice(KeyTryModels),
		VerifyCommands: v.GetStringSlice(KeyVerify),
		Plan:           v.GetBool(KeyPlan),
		Review:         v.GetBool(KeyReview),
		AutoCommit:     v.GetBool(KeyAutoCommit),
		Subtasks:       v.GetBool(KeySubtasks),
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("%s must be at least 1, got %d", KeyMaxRetries, cfg.MaxRetries)
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables bind even when
// the file omits them.
func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyTool, DefaultTool)
	v.SetDefault(KeyModel, "")
	v.SetDefault(KeyMaxRetries, DefaultMaxRetries)
	v.SetDefault(KeyTryModels, []string{})
	v.SetDefault(KeyVerify, []string{})
	v.SetDefault(KeyPlan, true)
	v.SetDefault(KeyReview, true)
	v.SetDefault(KeyAutoCommit, true)
	v.SetDefault(KeySubtasks, true)
}

// DefaultYAML is the commented starter config written by `sherpa init`.
const DefaultYAML = `# sherpa configuration
# Every key can be overridden by a SHERPA_* environment variable
# (dashes become underscores: SHERPA_MAX_RETRIES=5) or a run flag.

# Agent CLI used to execute tasks: claude or codex.
tool: claude

# Model passed to the agent. Empty uses the agent's default.
#model: sonnet

# Attempts per task before giving up.
max-retries: 3

# Model per attempt; the last entry repeats for remaining attempts.
# Entries are "model" or "tool:model".
#try-models:
#  - sonnet
#  - opus

# Commands that must exit zero after each attempt.
#verify:
#  - go build ./...
#  - go test ./...

# Write and review a plan before executing.
plan: true

# Ask the agent to review the diff after verification passes.
review: true

# Commit changes the agent left uncommitted.
auto-commit: true

# Execute subtasks recursively instead of the parent task.
subtasks: true
`

// WriteDefault creates the starter config at the standard path. An
// existing file is left alone.
func WriteDefault(workDir string) error {
	path := Path(workDir)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultYAML), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
