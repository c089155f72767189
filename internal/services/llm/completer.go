package llm

import (
	"context"

	"github.com/ternarybob/adscope/internal/models"
)

// Completer names recognised in [llm] provider_order
const (
	ProviderLocal    = "local"
	ProviderClaude   = "claude"
	ProviderGemini   = "gemini"
	ProviderEnhanced = "enhanced"
)

// CompletionRequest is a provider-agnostic text generation request
type CompletionRequest struct {
	System      string
	Messages    []models.ChatMessage
	MaxTokens   int
	Temperature float32
	JSON        bool // ask for a JSON object when the vendor supports it
}

// Completer generates text with one model backend
type Completer interface {
	Name() string
	Complete(ctx context.Context, request *CompletionRequest) (string, error)
}

// IsModelProvider reports whether name is served by a real model.
// Only those invocations consume credits.
func IsModelProvider(name string) bool {
	switch name {
	case ProviderLocal, ProviderClaude, ProviderGemini:
		return true
	}
	return false
}
