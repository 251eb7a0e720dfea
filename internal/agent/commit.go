package agent

import (
	"context"
	"fmt"
)

// CommitMessages synthesizes commit messages from diffs. It satisfies the
// git tracker's MessageSynthesizer contract.
type CommitMessages struct {
	Agent Agent
}

// SynthesizeCommitMessage produces a one-line conventional commit message
// describing the diff.
func (c CommitMessages) SynthesizeCommitMessage(ctx context.Context, diff string) (string, error) {
	prompt := fmt.Sprintf(`Write a conventional commit message for this diff.

DIFF:
%s

Rules:
- One line only, no body
- Format: type: description (e.g. "feat: add session timeout handling")
- Types: feat, fix, refactor, test, docs, chore
- Describe what changed, not how

Return ONLY the commit message line, nothing else.`, diff)

	return c.Agent.Complete(ctx, prompt, WithMaxTokens(128))
}
