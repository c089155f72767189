package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/adscope/internal/models"
)

func TestDeriveQuery(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.facebook.com/nike", "nike"},
		{"https://facebook.com/nike/", "nike"},
		{"facebook.com/Nike-Running", "Nike Running"},
		{"https://m.facebook.com/profile.php?id=100064", "100064"},
		{"https://www.facebook.com/pages/Blue_Bottle/123456", "Blue Bottle"},
		{"https://www.facebook.com/people/Jane.Doe/987", "Jane Doe"},
		{"https://www.facebook.com/ads/library/?q=running%20shoes", "running shoes"},
		{"https://www.facebook.com/ads/library/?view_all_page_id=555", "555"},
		{"https://www.nike.com/running", "nike"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveQuery(tt.url))
		})
	}
}

func TestDominantPageName(t *testing.T) {
	ads := []models.AdRecord{{PageName: "A"}, {PageName: "B"}, {PageName: "B"}, {}}
	assert.Equal(t, "B", dominantPageName(ads, "fallback"))
	assert.Equal(t, "fallback", dominantPageName(nil, "fallback"))
}

func TestAggregateKeepsEmptyPages(t *testing.T) {
	wf := models.NewWorkflow("wf", "https://facebook.com/mine", []string{"https://facebook.com/rival"})
	wf.Pages[0].Data = &models.PageData{PageName: "Mine", Ads: makeAds("Mine", 2)}

	input := aggregate(wf)
	assert.Len(t, input.Pages, 2)
	assert.Equal(t, "Mine", input.Pages[0].PageName)
	assert.Len(t, input.Pages[0].Ads, 2)
	assert.Equal(t, "rival", input.Pages[1].PageName)
	assert.NotNil(t, input.Pages[1].Ads)
	assert.Empty(t, input.Pages[1].Ads)
}
