package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
)

// GeminiCompleter generates text with the Gemini API
type GeminiCompleter struct {
	config *common.GeminiConfig
	retry  *RetryConfig
	logger arbor.ILogger

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiCompleter creates the completer; the client is created on first use
func NewGeminiCompleter(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiCompleter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	return &GeminiCompleter{
		config: config,
		retry:  NewDefaultRetryConfig(),
		logger: logger,
	}, nil
}

func (g *GeminiCompleter) Name() string { return ProviderGemini }

func (g *GeminiCompleter) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *GeminiCompleter) Complete(ctx context.Context, request *CompletionRequest) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	contents, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return "", err
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = g.config.Temperature
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if request.System != "" {
		config.SystemInstruction = genai.NewContentFromText(request.System, genai.RoleUser)
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.JSON {
		config.ResponseMIMEType = "application/json"
	}

	return withRetry(ctx, g.retry, g.logger, ProviderGemini, func() (string, error) {
		resp, err := client.Models.GenerateContent(ctx, g.config.Model, contents, config)
		if err != nil {
			return "", fmt.Errorf("gemini api call failed: %w", err)
		}
		if resp == nil || len(resp.Candidates) == 0 {
			return "", nil
		}
		return resp.Text(), nil
	})
}

func convertMessagesToGemini(messages []models.ChatMessage) ([]*genai.Content, error) {
	if !hasUserTurn(messages) {
		return nil, fmt.Errorf("at least one message must have role 'user'")
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}
	return contents, nil
}
