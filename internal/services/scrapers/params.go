package scrapers

import (
	"net/url"
	"strings"

	"github.com/ternarybob/adscope/internal/models"
)

const defaultAdLibraryURL = "https://www.facebook.com/ads/library/"

// AdLibraryURL builds the public Ad Library search URL for params.
// When params carries a page URL it is returned unchanged.
func AdLibraryURL(base string, params models.SearchParams) string {
	if params.PageURL != "" {
		return params.PageURL
	}
	if base == "" {
		base = defaultAdLibraryURL
	}

	q := url.Values{}
	q.Set("active_status", "all")
	q.Set("ad_type", "all")
	q.Set("country", regionOrAll(params.Region))
	q.Set("q", params.Query)
	q.Set("search_type", "keyword_unordered")
	q.Set("media_type", "all")
	return base + "?" + q.Encode()
}

func regionOrAll(region string) string {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return "ALL"
	}
	return region
}

// truncate caps ads at limit; a non-positive limit keeps everything.
func truncate(ads []models.AdRecord, limit int) []models.AdRecord {
	if limit > 0 && len(ads) > limit {
		return ads[:limit]
	}
	return ads
}

// stamp fills the provider and region on records that did not carry them.
func stamp(ads []models.AdRecord, source, region string) []models.AdRecord {
	for i := range ads {
		ads[i].Source = source
		if ads[i].Region == "" {
			ads[i].Region = regionOrAll(region)
		}
	}
	return ads
}
