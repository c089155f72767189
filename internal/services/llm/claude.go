package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
)

// ClaudeCompleter generates text with the Anthropic Messages API
type ClaudeCompleter struct {
	config *common.ClaudeConfig
	client anthropic.Client
	retry  *RetryConfig
	logger arbor.ILogger
}

// NewClaudeCompleter creates the completer. Extra options are passed to
// the SDK client (tests point it at a local server).
func NewClaudeCompleter(config *common.ClaudeConfig, logger arbor.ILogger, opts ...option.RequestOption) (*ClaudeCompleter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("claude api key is required")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(config.APIKey)}, opts...)
	return &ClaudeCompleter{
		config: config,
		client: anthropic.NewClient(opts...),
		retry:  NewDefaultRetryConfig(),
		logger: logger,
	}, nil
}

func (c *ClaudeCompleter) Name() string { return ProviderClaude }

func (c *ClaudeCompleter) Complete(ctx context.Context, request *CompletionRequest) (string, error) {
	messages, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return "", err
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = c.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if request.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: request.System}}
	}

	return withRetry(ctx, c.retry, c.logger, ProviderClaude, func() (string, error) {
		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("claude api call failed: %w", err)
		}

		var text strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		return text.String(), nil
	})
}

// convertMessagesToClaude maps chat turns onto Claude message params.
// At least one user turn is required.
func convertMessagesToClaude(messages []models.ChatMessage) ([]anthropic.MessageParam, error) {
	if !hasUserTurn(messages) {
		return nil, fmt.Errorf("at least one message must have role 'user'")
	}

	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			continue
		}
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}
	return out, nil
}

func hasUserTurn(messages []models.ChatMessage) bool {
	for _, msg := range messages {
		if msg.Role == "user" {
			return true
		}
	}
	return false
}
