// Package agent provides LLM completion for the non-interactive judgments
// the pipeline needs: review verdicts, commit-message synthesis, and task
// extraction. The coding work itself goes through the executor, not here.
package agent

import "context"

// Options configures a single completion.
type Options struct {
	Model        string
	SystemPrompt string
	MaxTokens    int64
}

// Option mutates completion options.
type Option func(*Options)

// WithModel overrides the agent's default model for one call.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithSystemPrompt sets a system prompt for one call.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) { o.SystemPrompt = prompt }
}

// WithMaxTokens caps the response length for one call.
func WithMaxTokens(n int64) Option {
	return func(o *Options) { o.MaxTokens = n }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Agent completes a prompt and returns the response text.
type Agent interface {
	Complete(ctx context.Context, prompt string, opts ...Option) (string, error)
}
