package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/interfaces"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/fallback"
)

// AnalysisChain runs the configured models in order and finishes with the
// enhanced fallback, so Analyze and Chat always produce a result.
type AnalysisChain struct {
	analysis *fallback.Chain[models.AnalysisInput, *models.AnalysisData]
	chat     *fallback.Chain[models.ChatInput, *models.ChatReply]
	logger   arbor.ILogger
}

// Completers builds the model backends named in [llm] provider_order.
// Backends without credentials are skipped with a warning.
func Completers(config *common.Config, logger arbor.ILogger) []Completer {
	var completers []Completer

	for _, name := range config.LLM.ProviderOrder {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ProviderLocal:
			if !config.LocalLLM.Enabled {
				continue
			}
			c, err := NewLocalCompleter(&config.LocalLLM, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("Local LLM disabled")
				continue
			}
			completers = append(completers, c)

		case ProviderClaude:
			c, err := NewClaudeCompleter(&config.Claude, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("Claude disabled")
				continue
			}
			completers = append(completers, c)

		case ProviderGemini:
			c, err := NewGeminiCompleter(&config.Gemini, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("Gemini disabled")
				continue
			}
			completers = append(completers, c)
		}
	}

	return completers
}

// NewAnalysisChain wires completers, in order, ahead of the enhanced fallback
func NewAnalysisChain(completers []Completer, attemptTimeout time.Duration, logger arbor.ILogger) *AnalysisChain {
	analysisProviders := make([]interfaces.AnalysisProvider, 0, len(completers)+1)
	chatProviders := make([]interfaces.ChatProvider, 0, len(completers)+1)
	for _, c := range completers {
		analysisProviders = append(analysisProviders, NewAnalysisProvider(c))
		chatProviders = append(chatProviders, NewChatProvider(c))
	}
	analysisProviders = append(analysisProviders, EnhancedAnalysis{})
	chatProviders = append(chatProviders, EnhancedChat{})

	analysis := fallback.NewChain("analysis", logger,
		func(d *models.AnalysisData) bool { return d.IsEmpty() },
		analysisProviders...,
	).WithAttemptTimeout(attemptTimeout)

	chat := fallback.NewChain("chat", logger,
		func(r *models.ChatReply) bool { return r == nil || strings.TrimSpace(r.Text) == "" },
		chatProviders...,
	).WithAttemptTimeout(attemptTimeout)

	return &AnalysisChain{
		analysis: analysis,
		chat:     chat,
		logger:   logger,
	}
}

// Providers returns the analysis provider names in invocation order
func (c *AnalysisChain) Providers() []string {
	return c.analysis.Providers()
}

// Analyze returns a populated analysis stamped with the provider that produced it
func (c *AnalysisChain) Analyze(ctx context.Context, input models.AnalysisInput) fallback.Result[*models.AnalysisData] {
	result := c.analysis.Run(ctx, input)
	if result.Exhausted() {
		// Only reachable if the enhanced provider panicked
		result.Value = Enhance(input)
		result.Provider = ProviderEnhanced
	}

	data := result.Value.Clone()
	data.AIProvider = result.Provider
	data.GeneratedAt = time.Now()
	result.Value = data

	c.logger.Debug().
		Str("provider", result.Provider).
		Int("ads", input.TotalAds()).
		Int("insights", len(data.Insights)).
		Msg("Analysis generated")

	return result
}

// Chat answers one message given prior turns and optional analysis context
func (c *AnalysisChain) Chat(ctx context.Context, input models.ChatInput) fallback.Result[*models.ChatReply] {
	result := c.chat.Run(ctx, input)
	if result.Exhausted() {
		reply, _ := EnhancedChat{}.Attempt(ctx, input)
		result.Value = reply
		result.Provider = ProviderEnhanced
	}

	reply := *result.Value
	reply.AIProvider = result.Provider
	result.Value = &reply
	return result
}
