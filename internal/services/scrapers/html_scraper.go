// -----------------------------------------------------------------------
// HTTP scraper - plain GET of the Ad Library page with heuristic parsing
// -----------------------------------------------------------------------

package scrapers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
)

const ProviderHTTP = "http"

// HTTPProvider fetches server-rendered HTML without a browser
type HTTPProvider struct {
	baseURL     string
	userAgent   string
	maxBodySize int64
	client      *http.Client
	logger      arbor.ILogger
}

// NewHTTPProvider creates the provider from [http_scraper]
func NewHTTPProvider(config common.HTTPScraperConfig, logger arbor.ILogger) *HTTPProvider {
	maxBody := int64(config.MaxBodySize)
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &HTTPProvider{
		baseURL:     config.BaseURL,
		userAgent:   config.UserAgent,
		maxBodySize: maxBody,
		client: &http.Client{
			Timeout: common.ParseDuration(config.Timeout, 30*time.Second),
		},
		logger: logger,
	}
}

func (h *HTTPProvider) Name() string { return ProviderHTTP }

func (h *HTTPProvider) Attempt(ctx context.Context, params models.SearchParams) ([]models.AdRecord, error) {
	target := AdLibraryURL(h.baseURL, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderHTTP, Err: err}
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderHTTP, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewProviderError(ProviderHTTP, "status %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize))
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderHTTP, Err: fmt.Errorf("read body: %w", err)}
	}

	ads, err := ExtractAds(string(body), target)
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderHTTP, Err: err}
	}

	h.logger.Debug().
		Str("url", target).
		Int("bytes", len(body)).
		Int("ads", len(ads)).
		Msg("HTTP scrape extracted ads")

	return stamp(truncate(ads, params.Limit), ProviderHTTP, params.Region), nil
}
