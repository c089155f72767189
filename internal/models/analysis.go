package models

// PageAggregate is one page's contribution to an analysis request.
// A page that produced no data is present with zero ads, never omitted.
type PageAggregate struct {
	Role     string     `json:"role"`
	PageName string     `json:"page_name"`
	URL      string     `json:"url,omitempty"`
	Ads      []AdRecord `json:"ads"`
}

// AnalysisInput is the shared parameter set of every AI provider in the analysis chain.
type AnalysisInput struct {
	Prompt string          `json:"prompt,omitempty"`
	Pages  []PageAggregate `json:"pages"`
}

// TotalAds counts ads across all pages.
func (in AnalysisInput) TotalAds() int {
	n := 0
	for _, p := range in.Pages {
		n += len(p.Ads)
	}
	return n
}

// ChatMessage is one prior conversation turn.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatInput is the shared parameter set of every AI provider in a chat chain.
type ChatInput struct {
	Message  string         `json:"message"`
	History  []ChatMessage  `json:"history,omitempty"`
	Context  *AnalysisInput `json:"context,omitempty"`
	Analysis *AnalysisData  `json:"analysis,omitempty"`
}

// ChatReply is the result of a chat chain run.
type ChatReply struct {
	Text       string `json:"response"`
	AIProvider string `json:"ai_provider"`
}
