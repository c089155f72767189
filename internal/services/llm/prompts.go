package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/adscope/internal/models"
)

const analysisSystemPrompt = `You are a senior paid-social strategist reviewing Facebook Ad Library data.
Compare "your_page" with its competitors. Be specific and cite ad counts.
Respond with a single JSON object and nothing else:
{"summary": "<2-4 sentences>", "insights": ["..."], "recommendations": ["..."]}`

const chatSystemPrompt = `You are a paid-social strategist answering questions about a competitive
Facebook ad analysis. Use the supplied analysis and ad data. Answer concisely.`

// Sample sizes keep prompts inside small local model context windows
const (
	maxAdsPerPage  = 10
	maxAdTextChars = 280
)

// buildAnalysisPrompt renders the aggregate as the user turn of an analysis request
func buildAnalysisPrompt(input models.AnalysisInput) string {
	var sb strings.Builder

	if input.Prompt != "" {
		sb.WriteString("Request: ")
		sb.WriteString(input.Prompt)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "Pages analysed: %d, total ads: %d\n", len(input.Pages), input.TotalAds())
	for _, page := range input.Pages {
		sb.WriteString(describePage(page))
	}
	return sb.String()
}

func describePage(page models.PageAggregate) string {
	var sb strings.Builder
	name := page.PageName
	if name == "" {
		name = page.URL
	}
	fmt.Fprintf(&sb, "\n## %s (%s): %d ads\n", page.Role, name, len(page.Ads))

	for i, ad := range page.Ads {
		if i >= maxAdsPerPage {
			fmt.Fprintf(&sb, "- ... %d more\n", len(page.Ads)-maxAdsPerPage)
			break
		}
		fmt.Fprintf(&sb, "- [%s", orDefault(ad.MediaType, "unknown"))
		if ad.CTA != "" {
			fmt.Fprintf(&sb, ", cta=%s", ad.CTA)
		}
		if ad.Active {
			sb.WriteString(", active")
		}
		fmt.Fprintf(&sb, "] %s\n", clip(ad.AdText, maxAdTextChars))
	}
	return sb.String()
}

// buildChatMessages appends the context block and the new question to the history
func buildChatMessages(input models.ChatInput) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, len(input.History)+1)
	messages = append(messages, input.History...)

	var sb strings.Builder
	if input.Analysis != nil {
		sb.WriteString("Current analysis:\n")
		sb.WriteString(input.Analysis.Summary)
		for _, s := range input.Analysis.Insights {
			sb.WriteString("\n- ")
			sb.WriteString(s)
		}
		sb.WriteString("\n\n")
	}
	if input.Context != nil {
		sb.WriteString("Ad data:\n")
		sb.WriteString(buildAnalysisPrompt(*input.Context))
		sb.WriteString("\n")
	}
	sb.WriteString(input.Message)

	return append(messages, models.ChatMessage{Role: "user", Content: sb.String()})
}

type analysisJSON struct {
	Summary         string   `json:"summary"`
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// parseAnalysis reads the model reply. Models often wrap the object in prose
// or code fences, so the outermost {...} is decoded. A reply without any
// object is kept as a plain summary.
func parseAnalysis(text string) (*models.AnalysisData, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return &models.AnalysisData{Summary: text}, nil
	}

	var parsed analysisJSON
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("invalid analysis JSON: %w", err)
	}
	return &models.AnalysisData{
		Summary:         strings.TrimSpace(parsed.Summary),
		Insights:        nonEmpty(parsed.Insights),
		Recommendations: nonEmpty(parsed.Recommendations),
	}, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
