package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pablasso/sherpa/internal/telemetry"
)

const (
	maxAPIRetries    = 3
	initialBackoff   = 1 * time.Second
	defaultMaxTokens = 1024
	defaultAPIModel  = "claude-sonnet-4-5"
)

// errAPIKeyRequired is returned when an API key is needed but not provided.
var errAPIKeyRequired = errors.New("API key required")

// AnthropicAgent completes prompts through the Anthropic API.
type AnthropicAgent struct {
	client         anthropic.Client
	model          anthropic.Model
	maxRetries     int
	initialBackoff time.Duration
}

// NewAnthropicAgent creates an API-backed agent. Env var ANTHROPIC_API_KEY
// takes precedence over the explicit apiKey. An empty model selects the
// default.
func NewAnthropicAgent(apiKey, model string) (*AnthropicAgent, error) {
	envKey := os.Getenv("ANTHROPIC_API_KEY")
	if envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or configure agent.api_key", errAPIKeyRequired)
	}
	if model == "" {
		model = defaultAPIModel
	}

	aiMetricsOnce.Do(initAIMetrics)

	return &AnthropicAgent{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          anthropic.Model(model),
		maxRetries:     maxAPIRetries,
		initialBackoff: initialBackoff,
	}, nil
}

// Complete sends the prompt and returns the response text, retrying
// transient API failures with exponential backoff.
func (a *AnthropicAgent) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := buildOptions(opts)

	model := a.model
	if o.Model != "" {
		model = anthropic.Model(o.Model)
	}
	maxTokens := int64(defaultMaxTokens)
	if o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if o.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: o.SystemPrompt}}
	}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		message, err := a.client.Messages.New(ctx, params)
		if err == nil {
			recordUsage(ctx, string(model), message.Usage.InputTokens, message.Usage.OutputTokens)
			if len(message.Content) == 0 {
				return "", errors.New("unexpected response format: no content blocks")
			}
			content := message.Content[0]
			if content.Type != "text" {
				return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
			}
			return content.Text, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			return "", fmt.Errorf("non-retryable error: %w", err)
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", a.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		statusCode := apiErr.StatusCode
		return statusCode == 429 || statusCode >= 500
	}

	return false
}

// aiMetrics holds lazily-initialized OTel instruments for API calls.
var aiMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
}

var aiMetricsOnce sync.Once

func initAIMetrics() {
	m := telemetry.Meter("github.com/pablasso/sherpa/agent")
	aiMetrics.inputTokens, _ = m.Int64Counter("sherpa.agent.input_tokens",
		metric.WithDescription("Anthropic API input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.outputTokens, _ = m.Int64Counter("sherpa.agent.output_tokens",
		metric.WithDescription("Anthropic API output tokens generated"),
		metric.WithUnit("{token}"),
	)
}

func recordUsage(ctx context.Context, model string, input, output int64) {
	if aiMetrics.inputTokens == nil {
		return
	}
	attr := metric.WithAttributes(attribute.String("sherpa.agent.model", model))
	aiMetrics.inputTokens.Add(ctx, input, attr)
	aiMetrics.outputTokens.Add(ctx, output, attr)
}
