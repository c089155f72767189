package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/adscope/internal/models"
)

func ads(n int, media, cta, text string, active bool) []models.AdRecord {
	out := make([]models.AdRecord, n)
	for i := range out {
		out[i] = models.AdRecord{ID: "id", MediaType: media, CTA: cta, AdText: text, Active: active}
	}
	return out
}

func TestEnhance_NoAds(t *testing.T) {
	data := Enhance(models.AnalysisInput{Pages: []models.PageAggregate{
		{Role: models.RoleYourPage},
		{Role: models.CompetitorRole(1)},
	}})

	require.NotNil(t, data)
	assert.False(t, data.IsEmpty())
	assert.Contains(t, data.Summary, "No ads were found across 2 pages")
	assert.NotEmpty(t, data.Recommendations)
}

func TestEnhance_CompetitorLeads(t *testing.T) {
	input := models.AnalysisInput{Pages: []models.PageAggregate{
		{Role: models.RoleYourPage, PageName: "Acme", Ads: ads(2, "image", "Shop Now", "Winter jackets discount", false)},
		{Role: models.CompetitorRole(1), PageName: "Rival", Ads: ads(6, "video", "Learn More", "Winter jackets waterproof", true)},
		{Role: models.CompetitorRole(2), PageName: "Other"},
	}}

	data := Enhance(input)

	assert.Contains(t, data.Summary, "Analysed 8 ads across 3 pages")
	assert.Contains(t, data.Summary, "Acme runs 2 of them")
	assert.Contains(t, data.Summary, "most active competitor is Rival with 6 ads")

	assert.Contains(t, data.Insights[0], "Acme runs 2 ads (25% share of voice")
	assert.Contains(t, data.Insights[1], "Rival runs 6 ads (75% share of voice, 6 active, mostly video)")
	assert.Contains(t, data.Insights[2], "Other runs 0 ads (0% share of voice).")

	joined := ""
	for _, s := range data.Insights {
		joined += s + "\n"
	}
	assert.Contains(t, joined, `"Learn More" (6 ads)`)
	assert.Contains(t, joined, "jackets")
	assert.Contains(t, joined, "winter")

	require.NotEmpty(t, data.Recommendations)
	assert.Contains(t, data.Recommendations[0], "Increase ad volume: Rival runs 6 ads against your 2")
	recs := ""
	for _, r := range data.Recommendations {
		recs += r + "\n"
	}
	assert.Contains(t, recs, "Test more video creative")
	assert.Contains(t, recs, "inactive")
}

func TestEnhancedAnalysis_IsTerminal(t *testing.T) {
	p := EnhancedAnalysis{}
	assert.True(t, p.Terminal())
	assert.Equal(t, ProviderEnhanced, p.Name())

	data, err := p.Attempt(context.Background(), models.AnalysisInput{})
	require.NoError(t, err)
	assert.False(t, data.IsEmpty())
}

func TestEnhancedChat(t *testing.T) {
	analysis := &models.AnalysisData{
		Summary:         "Rival outspends Acme.",
		Insights:        []string{"Rival runs video"},
		Recommendations: []string{"Test video"},
	}

	reply, err := EnhancedChat{}.Attempt(context.Background(), models.ChatInput{Message: "What should I improve?", Analysis: analysis})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Rival outspends Acme.")
	assert.Contains(t, reply.Text, "Recommendations:\n- Test video")
	assert.NotContains(t, reply.Text, "Insights:")

	reply, err = EnhancedChat{}.Attempt(context.Background(), models.ChatInput{Message: "Compare competitors", Analysis: analysis})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Insights:\n- Rival runs video")

	reply, err = EnhancedChat{}.Attempt(context.Background(), models.ChatInput{Message: "hello"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "No analysis is available yet")
}
