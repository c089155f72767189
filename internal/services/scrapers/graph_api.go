// -----------------------------------------------------------------------
// Graph API - first-party Meta Ad Library API (ads_archive)
// -----------------------------------------------------------------------

package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
)

const ProviderGraphAPI = "graph_api"

const graphAdFields = "id,page_id,page_name,ad_creative_bodies,ad_creative_link_titles,ad_creative_link_captions,ad_delivery_start_time,ad_delivery_stop_time,publisher_platforms,ad_snapshot_url"

// GraphAPIProvider searches the Ad Library API with a long-lived access token
type GraphAPIProvider struct {
	accessToken string
	baseURL     string
	version     string
	maxPages    int
	limiter     *rate.Limiter
	logger      arbor.ILogger
}

// NewGraphAPIProvider creates the provider from [graph_api]
func NewGraphAPIProvider(config common.GraphAPIConfig, logger arbor.ILogger) *GraphAPIProvider {
	maxPages := config.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &GraphAPIProvider{
		accessToken: config.AccessToken,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		version:     config.Version,
		maxPages:    maxPages,
		limiter:     rate.NewLimiter(rate.Every(common.ParseDuration(config.RateLimit, time.Second)), 1),
		logger:      logger,
	}
}

func (g *GraphAPIProvider) Name() string { return ProviderGraphAPI }

type graphAd struct {
	ID                     string   `json:"id"`
	PageID                 string   `json:"page_id"`
	PageName               string   `json:"page_name"`
	AdCreativeBodies       []string `json:"ad_creative_bodies"`
	AdCreativeLinkTitles   []string `json:"ad_creative_link_titles"`
	AdCreativeLinkCaptions []string `json:"ad_creative_link_captions"`
	AdDeliveryStartTime    string   `json:"ad_delivery_start_time"`
	AdDeliveryStopTime     string   `json:"ad_delivery_stop_time"`
	PublisherPlatforms     []string `json:"publisher_platforms"`
	AdSnapshotURL          string   `json:"ad_snapshot_url"`
}

type graphResponse struct {
	Data   []graphAd `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Attempt pages through ads_archive until limit ads or maxPages pages
func (g *GraphAPIProvider) Attempt(ctx context.Context, params models.SearchParams) ([]models.AdRecord, error) {
	if g.accessToken == "" {
		return nil, models.NewProviderError(ProviderGraphAPI, "access token not configured")
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: g.accessToken}))

	pageSize := params.Limit
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	q := url.Values{}
	q.Set("search_terms", params.Query)
	q.Set("ad_reached_countries", fmt.Sprintf(`["%s"]`, regionOrAll(params.Region)))
	q.Set("ad_active_status", "ALL")
	q.Set("ad_type", "ALL")
	q.Set("fields", graphAdFields)
	q.Set("limit", fmt.Sprintf("%d", pageSize))
	next := fmt.Sprintf("%s/%s/ads_archive?%s", g.baseURL, g.version, q.Encode())

	var ads []models.AdRecord
	for page := 0; page < g.maxPages && next != ""; page++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &models.ProviderError{Provider: ProviderGraphAPI, Err: err}
		}

		resp, err := g.fetchPage(ctx, client, next)
		if err != nil {
			return nil, &models.ProviderError{Provider: ProviderGraphAPI, Err: err}
		}

		for _, item := range resp.Data {
			ads = append(ads, item.toAdRecord())
		}
		if params.Limit > 0 && len(ads) >= params.Limit {
			break
		}
		next = resp.Paging.Next
	}

	g.logger.Debug().
		Str("query", params.Query).
		Int("ads", len(ads)).
		Msg("Graph API search finished")

	return stamp(truncate(ads, params.Limit), ProviderGraphAPI, params.Region), nil
}

func (g *GraphAPIProvider) fetchPage(ctx context.Context, client *http.Client, pageURL string) (*graphResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}

	var parsed graphResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode ads_archive (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("graph api error %d (%s): %s", parsed.Error.Code, parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph api status %d", resp.StatusCode)
	}
	return &parsed, nil
}

func (item graphAd) toAdRecord() models.AdRecord {
	ad := models.AdRecord{
		ID:          item.ID,
		PageID:      item.PageID,
		PageName:    item.PageName,
		AdText:      first(item.AdCreativeBodies),
		Headline:    first(item.AdCreativeLinkTitles),
		Platforms:   lowerAll(item.PublisherPlatforms),
		SnapshotURL: item.AdSnapshotURL,
		Active:      item.AdDeliveryStopTime == "",
		MediaType:   "unknown",
	}
	if t, err := time.Parse("2006-01-02", item.AdDeliveryStartTime); err == nil {
		ad.StartDate = t
	}
	return ad
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
