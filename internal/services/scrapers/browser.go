// -----------------------------------------------------------------------
// Browser - headless Chrome rendering of the public Ad Library
// -----------------------------------------------------------------------

package scrapers

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
)

const ProviderBrowser = "browser"

// renderFunc returns the fully rendered HTML of url
type renderFunc func(ctx context.Context, url string) (string, error)

// BrowserProvider renders the Ad Library with chromedp and extracts ad cards
type BrowserProvider struct {
	config common.BrowserConfig
	render renderFunc
	logger arbor.ILogger
}

// NewBrowserProvider creates the provider from [browser]
func NewBrowserProvider(config common.BrowserConfig, logger arbor.ILogger) *BrowserProvider {
	b := &BrowserProvider{
		config: config,
		logger: logger,
	}
	b.render = b.renderWithChrome
	return b
}

func (b *BrowserProvider) Name() string { return ProviderBrowser }

func (b *BrowserProvider) Attempt(ctx context.Context, params models.SearchParams) ([]models.AdRecord, error) {
	target := AdLibraryURL("", params)

	html, err := b.render(ctx, target)
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderBrowser, Err: err}
	}

	ads, err := ExtractAds(html, target)
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderBrowser, Err: err}
	}

	b.logger.Debug().
		Str("url", target).
		Int("html_length", len(html)).
		Int("ads", len(ads)).
		Msg("Browser render extracted ads")

	return stamp(truncate(ads, params.Limit), ProviderBrowser, params.Region), nil
}

// renderWithChrome starts a short-lived browser per attempt so concurrent
// attempts never share tabs.
func (b *BrowserProvider) renderWithChrome(ctx context.Context, url string) (string, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.config.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocatorCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	defer browserCancel()

	timeoutCtx, cancel := context.WithTimeout(browserCtx, common.ParseDuration(b.config.Timeout, 45*time.Second))
	defer cancel()

	var html string
	err := chromedp.Run(timeoutCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(url),
		chromedp.Sleep(common.ParseDuration(b.config.WaitTime, 3*time.Second)),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}
