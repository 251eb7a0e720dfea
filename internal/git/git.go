// Package git tracks repository state around agent attempts: snapshots,
// change detection, diffs, and best-effort auto-commits.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandContext is the function used to create git commands.
// It's a variable so tests can replace it with a mock.
var CommandContext = exec.CommandContext

// ErrUnavailable is returned when the working directory has no usable git
// state (not a repository, or no commits yet). Callers degrade: diff-based
// review and auto-commit are skipped, the task itself is unaffected.
var ErrUnavailable = errors.New("git state unavailable")

// maxDiffBytes bounds the diff handed to the reviewing agent.
const maxDiffBytes = 64 * 1024

const truncationMarker = "\n... (diff truncated)"

// fallbackCommitMessage is used when message synthesis fails.
const fallbackCommitMessage = "chore: record agent changes"

// State is a snapshot of the repository at one point in time.
type State struct {
	Head      string
	Dirty     bool
	Available bool
}

// CommitInfo describes changes made during an attempt, either as an existing
// commit (the agent committed itself) or as pending changes to commit.
// Synthesized is true when the message came from the LLM rather than a commit.
type CommitInfo struct {
	Hash        string
	Message     string
	Files       []string
	Synthesized bool
}

// Status represents the working tree status.
type Status struct {
	Clean bool
	Files []string
}

// MessageSynthesizer produces a commit message for a diff. Implemented by the
// agent layer; nil disables synthesis and falls back to a fixed message.
type MessageSynthesizer interface {
	SynthesizeCommitMessage(ctx context.Context, diff string) (string, error)
}

// Tracker inspects and mutates the git repository at a fixed working
// directory. All operations take the directory from the tracker, never from
// the ambient process state.
type Tracker struct {
	dir    string
	synth  MessageSynthesizer
	logger *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSynthesizer sets the commit-message synthesizer.
func WithSynthesizer(s MessageSynthesizer) Option {
	return func(t *Tracker) { t.synth = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a tracker for the repository at dir.
func NewTracker(dir string, opts ...Option) *Tracker {
	t := &Tracker{
		dir:    dir,
		logger: slog.Default().With("component", "git"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// run executes a git command in the tracker's directory and returns stdout.
func (t *Tracker) run(ctx context.Context, args ...string) (string, error) {
	cmd := CommandContext(ctx, "git", args...)
	cmd.Dir = t.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s: %w", args[0], msg, err)
	}
	return stdout.String(), nil
}

// Capture snapshots HEAD and the working tree. It never fails: a repository
// without usable state yields Available=false, which downstream features
// treat as "skip git-dependent work".
func (t *Tracker) Capture(ctx context.Context) State {
	head, err := t.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		t.logger.Debug("git state unavailable", "error", err)
		return State{}
	}

	status, err := t.Status(ctx)
	if err != nil {
		t.logger.Debug("git state unavailable", "error", err)
		return State{}
	}

	return State{
		Head:      strings.TrimSpace(head),
		Dirty:     !status.Clean,
		Available: true,
	}
}

// Status returns the working tree status.
func (t *Tracker) Status(ctx context.Context) (*Status, error) {
	output, err := t.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		// Porcelain format: XY filename. XY is the two-char status code,
		// followed by a space, e.g. "?? file.txt", " M file.txt".
		if len(line) > 3 {
			files = append(files, line[3:])
		} else {
			// Unexpected format, include the whole line as the filename
			// to avoid silently dropping entries
			files = append(files, strings.TrimSpace(line))
		}
	}

	return &Status{Clean: len(files) == 0, Files: files}, nil
}

// ExtractCommitInfo interprets the state pair bracketing an attempt.
// HEAD moved: the agent committed; describe that commit. HEAD unchanged with
// a dirty tree: the agent left uncommitted work; enumerate the files and
// synthesize a message from the diff. Neither: returns nil, nothing changed.
func (t *Tracker) ExtractCommitInfo(ctx context.Context, before, after State) (*CommitInfo, error) {
	if !before.Available || !after.Available {
		return nil, ErrUnavailable
	}

	if after.Head != before.Head {
		return t.describeHeadCommit(ctx, after.Head)
	}

	if after.Dirty {
		return t.describePendingChanges(ctx)
	}

	return nil, nil
}

// describeHeadCommit parses the stat output of the commit at HEAD.
func (t *Tracker) describeHeadCommit(ctx context.Context, hash string) (*CommitInfo, error) {
	output, err := t.run(ctx, "show", "--stat", "--format=%s", "HEAD")
	if err != nil {
		return nil, err
	}

	lines := strings.Split(output, "\n")
	info := &CommitInfo{Hash: hash}
	for i, line := range lines {
		if i == 0 {
			info.Message = strings.TrimSpace(line)
			continue
		}
		// Stat lines look like " path/to/file | 12 ++--". The trailing
		// summary line ("2 files changed, ...") has no pipe.
		if idx := strings.Index(line, "|"); idx > 0 {
			info.Files = append(info.Files, strings.TrimSpace(line[:idx]))
		}
	}
	return info, nil
}

// describePendingChanges builds commit info for uncommitted work.
func (t *Tracker) describePendingChanges(ctx context.Context) (*CommitInfo, error) {
	status, err := t.Status(ctx)
	if err != nil {
		return nil, err
	}

	info := &CommitInfo{Files: status.Files, Synthesized: true}

	diff, err := t.run(ctx, "diff", "HEAD")
	if err != nil || t.synth == nil {
		info.Message = fallbackCommitMessage
		return info, nil
	}

	msg, err := t.synth.SynthesizeCommitMessage(ctx, truncate(diff))
	if err != nil || strings.TrimSpace(msg) == "" {
		t.logger.Warn("commit message synthesis failed, using fallback", "error", err)
		info.Message = fallbackCommitMessage
		return info, nil
	}

	info.Message = firstLine(msg)
	return info, nil
}

// AutoCommit stages the files named in info (or everything when none are
// named) and commits with info.Message. Committing is best-effort: every
// failure is logged and swallowed, a failed commit never fails the task.
// Returns true when a commit was created, and fills info.Hash.
func (t *Tracker) AutoCommit(ctx context.Context, info *CommitInfo) bool {
	if info == nil || info.Message == "" {
		return false
	}

	if len(info.Files) == 0 {
		if _, err := t.run(ctx, "add", "-A"); err != nil {
			t.logger.Warn("auto-commit staging failed", "error", err)
			return false
		}
	} else {
		args := append([]string{"add", "--"}, info.Files...)
		if _, err := t.run(ctx, args...); err != nil {
			t.logger.Warn("auto-commit staging failed", "error", err)
			return false
		}
	}

	if _, err := t.run(ctx, "commit", "-m", info.Message); err != nil {
		t.logger.Warn("auto-commit failed", "error", err)
		return false
	}

	if head, err := t.run(ctx, "rev-parse", "HEAD"); err == nil {
		info.Hash = strings.TrimSpace(head)
	}
	return true
}

// CommitPaths stages exactly the given paths and commits them with message.
// Unlike AutoCommit this reports failure; it backs the plan-file commit.
func (t *Tracker) CommitPaths(ctx context.Context, message string, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	if _, err := t.run(ctx, args...); err != nil {
		return err
	}
	_, err := t.run(ctx, "commit", "-m", message)
	return err
}

// DiffSince returns a labeled diff covering both commits made since
// beforeHead and any uncommitted changes, truncated to a bounded size.
// An empty string means there is nothing to review.
func (t *Tracker) DiffSince(ctx context.Context, beforeHead string) (string, error) {
	var sections []string

	committed, err := t.run(ctx, "diff", beforeHead, "HEAD")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(committed) != "" {
		sections = append(sections, "# Committed changes\n"+committed)
	}

	uncommitted, err := t.run(ctx, "diff", "HEAD")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(uncommitted) != "" {
		sections = append(sections, "# Uncommitted changes\n"+uncommitted)
	}

	return truncate(strings.Join(sections, "\n")), nil
}

func truncate(s string) string {
	if len(s) <= maxDiffBytes {
		return s
	}
	return s[:maxDiffBytes] + truncationMarker
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx != -1 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
