package models

import "time"

// AdRecord is a single ad returned by any scraping provider.
// Providers normalise their native payloads into this shape so the
// fallback chain and the analysis stage never see provider-specific data.
type AdRecord struct {
	ID          string    `json:"id" yaml:"id"`
	PageID      string    `json:"page_id,omitempty" yaml:"page_id,omitempty"`
	PageName    string    `json:"page_name" yaml:"page_name"`
	AdText      string    `json:"ad_text" yaml:"ad_text"`
	Headline    string    `json:"headline,omitempty" yaml:"headline,omitempty"`
	CTA         string    `json:"cta,omitempty" yaml:"cta,omitempty"`
	MediaType   string    `json:"media_type,omitempty" yaml:"media_type,omitempty"` // image, video, carousel, text
	Platforms   []string  `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	SnapshotURL string    `json:"snapshot_url,omitempty" yaml:"snapshot_url,omitempty"`
	LandingURL  string    `json:"landing_url,omitempty" yaml:"landing_url,omitempty"`
	Region      string    `json:"region,omitempty" yaml:"region,omitempty"`
	Active      bool      `json:"active" yaml:"active"`
	StartDate   time.Time `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	Source      string    `json:"source,omitempty" yaml:"source,omitempty"` // provider that produced the record
}

// SearchParams are the immutable parameters shared by every provider in a scrape chain.
type SearchParams struct {
	Platform string `json:"platform"`
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
	Region   string `json:"region"`
	PageURL  string `json:"page_url,omitempty"`
}

// CloneAds returns a copy of ads that shares no slices with the input.
func CloneAds(ads []AdRecord) []AdRecord {
	if ads == nil {
		return nil
	}
	out := make([]AdRecord, len(ads))
	for i, ad := range ads {
		out[i] = ad
		if ad.Platforms != nil {
			out[i].Platforms = append([]string(nil), ad.Platforms...)
		}
	}
	return out
}
