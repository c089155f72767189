package llm

import (
	"context"
	"strings"

	"github.com/ternarybob/adscope/internal/models"
)

// AnalysisProvider adapts a Completer to the analysis chain
type AnalysisProvider struct {
	completer Completer
}

// NewAnalysisProvider wraps completer
func NewAnalysisProvider(completer Completer) *AnalysisProvider {
	return &AnalysisProvider{completer: completer}
}

func (p *AnalysisProvider) Name() string { return p.completer.Name() }

func (p *AnalysisProvider) Attempt(ctx context.Context, input models.AnalysisInput) (*models.AnalysisData, error) {
	text, err := p.completer.Complete(ctx, &CompletionRequest{
		System:   analysisSystemPrompt,
		Messages: []models.ChatMessage{{Role: "user", Content: buildAnalysisPrompt(input)}},
		JSON:     true,
	})
	if err != nil {
		return nil, &models.ProviderError{Provider: p.Name(), Err: err}
	}

	data, err := parseAnalysis(text)
	if err != nil {
		return nil, &models.ProviderError{Provider: p.Name(), Err: err}
	}
	return data, nil
}

// ChatProvider adapts a Completer to the chat chain
type ChatProvider struct {
	completer Completer
}

// NewChatProvider wraps completer
func NewChatProvider(completer Completer) *ChatProvider {
	return &ChatProvider{completer: completer}
}

func (p *ChatProvider) Name() string { return p.completer.Name() }

func (p *ChatProvider) Attempt(ctx context.Context, input models.ChatInput) (*models.ChatReply, error) {
	text, err := p.completer.Complete(ctx, &CompletionRequest{
		System:   chatSystemPrompt,
		Messages: buildChatMessages(input),
	})
	if err != nil {
		return nil, &models.ProviderError{Provider: p.Name(), Err: err}
	}
	return &models.ChatReply{Text: strings.TrimSpace(text)}, nil
}
