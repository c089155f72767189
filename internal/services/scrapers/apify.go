// -----------------------------------------------------------------------
// Apify - managed scraping service backed by remote actor runs
// -----------------------------------------------------------------------

package scrapers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/poller"
)

const ProviderApify = "apify"

// ApifyProvider starts an Ad Library actor run and waits for its dataset
type ApifyProvider struct {
	token    string
	actorID  string
	baseURL  string
	maxItems int
	client   *http.Client
	poller   *poller.Poller
	logger   arbor.ILogger
}

// NewApifyProvider creates the provider from [apify]
func NewApifyProvider(config common.ApifyConfig, p *poller.Poller, logger arbor.ILogger) *ApifyProvider {
	return &ApifyProvider{
		token:    config.Token,
		actorID:  config.ActorID,
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		maxItems: config.MaxItems,
		client: &http.Client{
			Timeout: common.ParseDuration(config.Timeout, 30*time.Second),
		},
		poller: p,
		logger: logger,
	}
}

func (a *ApifyProvider) Name() string { return ProviderApify }

// Attempt starts a run and drives it to completion through the poller.
// Poll timeouts and failed runs come back as provider errors.
func (a *ApifyProvider) Attempt(ctx context.Context, params models.SearchParams) ([]models.AdRecord, error) {
	run, err := a.Start(ctx, params)
	if err != nil {
		return nil, err
	}

	ads, err := poller.Await[[]models.AdRecord](ctx, a.poller, run)
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderApify, Err: err}
	}
	return stamp(truncate(ads, params.Limit), ProviderApify, params.Region), nil
}

// Start launches the actor and returns a handle for polling
func (a *ApifyProvider) Start(ctx context.Context, params models.SearchParams) (poller.RemoteRun[[]models.AdRecord], error) {
	if a.token == "" {
		return nil, models.NewProviderError(ProviderApify, "api token not configured")
	}

	count := params.Limit
	if a.maxItems > 0 && (count <= 0 || count > a.maxItems) {
		count = a.maxItems
	}
	input := map[string]interface{}{
		"urls":            []map[string]string{{"url": AdLibraryURL("", params)}},
		"count":           count,
		"scrapeAdDetails": false,
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderApify, Err: err}
	}

	reqURL := fmt.Sprintf("%s/acts/%s/runs", a.baseURL, a.actorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderApify, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderApify, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, models.NewProviderError(ProviderApify, "failed to start actor: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data apifyRunData `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &models.ProviderError{Provider: ProviderApify, Err: fmt.Errorf("decode run: %w", err)}
	}

	a.logger.Debug().
		Str("run_id", result.Data.ID).
		Str("actor", a.actorID).
		Str("query", params.Query).
		Msg("Apify actor run started")

	return &apifyRun{
		provider:  a,
		id:        result.Data.ID,
		datasetID: result.Data.DefaultDatasetID,
		limit:     count,
	}, nil
}

type apifyRunData struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	StatusMessage    string `json:"statusMessage"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// apifyRun is a handle to one actor run
type apifyRun struct {
	provider  *ApifyProvider
	id        string
	datasetID string
	limit     int
}

func (r *apifyRun) ID() string { return r.id }

func (r *apifyRun) Status(ctx context.Context) (poller.RunStatus, error) {
	var result struct {
		Data apifyRunData `json:"data"`
	}
	statusURL := fmt.Sprintf("%s/actor-runs/%s", r.provider.baseURL, r.id)
	if err := r.provider.getJSON(ctx, statusURL, &result); err != nil {
		return poller.RunStatus{}, err
	}
	if result.Data.DefaultDatasetID != "" {
		r.datasetID = result.Data.DefaultDatasetID
	}
	return poller.RunStatus{
		State:      poller.RunState(result.Data.Status),
		Diagnostic: result.Data.StatusMessage,
	}, nil
}

func (r *apifyRun) Fetch(ctx context.Context) ([]models.AdRecord, error) {
	if r.datasetID == "" {
		return nil, fmt.Errorf("run %s has no dataset", r.id)
	}
	itemsURL := fmt.Sprintf("%s/datasets/%s/items?clean=true&format=json", r.provider.baseURL, r.datasetID)
	if r.limit > 0 {
		itemsURL += fmt.Sprintf("&limit=%d", r.limit)
	}

	var items []apifyAdItem
	if err := r.provider.getJSON(ctx, itemsURL, &items); err != nil {
		return nil, err
	}

	ads := make([]models.AdRecord, 0, len(items))
	for _, item := range items {
		if ad, ok := item.toAdRecord(); ok {
			ads = append(ads, ad)
		}
	}
	return ads, nil
}

// authorize sends the API token as a bearer header
func (a *ApifyProvider) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.token)
}

func (a *ApifyProvider) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	a.authorize(req)
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("apify status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apifyAdItem is the subset of the Ad Library actor output we normalise
type apifyAdItem struct {
	AdArchiveID       string   `json:"adArchiveID"`
	AdArchiveIDSnake  string   `json:"ad_archive_id"`
	PageID            string   `json:"pageID"`
	PageName          string   `json:"pageName"`
	IsActive          bool     `json:"isActive"`
	PublisherPlatform []string `json:"publisherPlatform"`
	StartDate         int64    `json:"startDate"`
	Snapshot          struct {
		Body struct {
			Text string `json:"text"`
		} `json:"body"`
		Title         string `json:"title"`
		CTAText       string `json:"cta_text"`
		DisplayFormat string `json:"display_format"`
		LinkURL       string `json:"link_url"`
		PageName      string `json:"page_name"`
	} `json:"snapshot"`
}

func (item apifyAdItem) toAdRecord() (models.AdRecord, bool) {
	id := item.AdArchiveID
	if id == "" {
		id = item.AdArchiveIDSnake
	}
	if id == "" {
		return models.AdRecord{}, false
	}

	pageName := item.PageName
	if pageName == "" {
		pageName = item.Snapshot.PageName
	}

	ad := models.AdRecord{
		ID:          id,
		PageID:      item.PageID,
		PageName:    pageName,
		AdText:      item.Snapshot.Body.Text,
		Headline:    item.Snapshot.Title,
		CTA:         item.Snapshot.CTAText,
		MediaType:   strings.ToLower(item.Snapshot.DisplayFormat),
		Platforms:   lowerAll(item.PublisherPlatform),
		LandingURL:  item.Snapshot.LinkURL,
		SnapshotURL: "https://www.facebook.com/ads/library/?id=" + id,
		Active:      item.IsActive,
	}
	if item.StartDate > 0 {
		ad.StartDate = time.Unix(item.StartDate, 0).UTC()
	}
	return ad, true
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
