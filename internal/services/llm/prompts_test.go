package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/adscope/internal/models"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		summary string
		recs    int
		wantNil bool
		wantErr bool
	}{
		{
			name:    "plain object",
			text:    `{"summary":"Acme leads","insights":["a"],"recommendations":["r1","r2"]}`,
			summary: "Acme leads",
			recs:    2,
		},
		{
			name:    "fenced with prose",
			text:    "Here you go:\n```json\n{\"summary\":\"Fenced\",\"insights\":[],\"recommendations\":[\"r\",\" \"]}\n```",
			summary: "Fenced",
			recs:    1,
		},
		{
			name:    "no object keeps text",
			text:    "Competitors run more video.",
			summary: "Competitors run more video.",
		},
		{
			name:    "empty reply",
			text:    "   ",
			wantNil: true,
		},
		{
			name:    "broken json",
			text:    `{"summary": "cut off", "insights": [}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := parseAnalysis(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, data)
				return
			}
			assert.Equal(t, tt.summary, data.Summary)
			assert.Len(t, data.Recommendations, tt.recs)
		})
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	ads := make([]models.AdRecord, 12)
	for i := range ads {
		ads[i] = models.AdRecord{ID: "x", AdText: "Summer sale", MediaType: "image", CTA: "Shop Now", Active: true}
	}
	prompt := buildAnalysisPrompt(models.AnalysisInput{
		Prompt: "Focus on pricing",
		Pages: []models.PageAggregate{
			{Role: models.RoleYourPage, PageName: "Acme", Ads: ads},
			{Role: models.CompetitorRole(1), URL: "https://facebook.com/rival"},
		},
	})

	assert.Contains(t, prompt, "Request: Focus on pricing")
	assert.Contains(t, prompt, "total ads: 12")
	assert.Contains(t, prompt, "your_page (Acme): 12 ads")
	assert.Contains(t, prompt, "... 2 more")
	assert.Contains(t, prompt, "competitor_1 (https://facebook.com/rival): 0 ads")
	assert.Contains(t, prompt, "cta=Shop Now")
}

func TestBuildChatMessages(t *testing.T) {
	messages := buildChatMessages(models.ChatInput{
		Message: "What should we do next?",
		History: []models.ChatMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
		Analysis: &models.AnalysisData{Summary: "Acme trails Rival", Insights: []string{"Rival uses video"}},
	})

	require.Len(t, messages, 3)
	last := messages[2]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, "Acme trails Rival")
	assert.Contains(t, last.Content, "- Rival uses video")
	assert.Contains(t, last.Content, "What should we do next?")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "a b", clip("  a \n b ", 10))
	assert.Equal(t, "abc...", clip("abcdef", 3))
}
