package scrapers

import (
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/interfaces"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/fallback"
	"github.com/ternarybob/adscope/internal/services/poller"
)

// NewPoller builds the shared run poller from [poller]
func NewPoller(config common.PollerConfig, logger arbor.ILogger) *poller.Poller {
	return poller.New(logger, poller.Options{
		PollInterval: common.ParseDuration(config.Interval, 2*time.Second),
		MaxWait:      common.ParseDuration(config.MaxWait, 5*time.Minute),
	})
}

// Providers returns the enabled scraping providers in priority order:
// apify, graph_api, browser, http. Providers that need credentials are
// skipped with a warning when the credential is missing.
func Providers(config *common.Config, p *poller.Poller, logger arbor.ILogger) []interfaces.ScrapeProvider {
	var providers []interfaces.ScrapeProvider

	if config.Apify.Enabled {
		if config.Apify.Token == "" {
			logger.Warn().Msg("Apify enabled but no API token configured - provider skipped")
		} else {
			providers = append(providers, NewApifyProvider(config.Apify, p, logger))
		}
	}

	if config.GraphAPI.Enabled {
		if config.GraphAPI.AccessToken == "" {
			logger.Warn().Msg("Graph API enabled but no access token configured - provider skipped")
		} else {
			providers = append(providers, NewGraphAPIProvider(config.GraphAPI, logger))
		}
	}

	if config.Browser.Enabled {
		providers = append(providers, NewBrowserProvider(config.Browser, logger))
	}

	if config.HTTPScraper.Enabled {
		providers = append(providers, NewHTTPProvider(config.HTTPScraper, logger))
	}

	return providers
}

// NewScrapeChain wires providers into a fallback chain where an empty ad
// list moves on to the next provider.
func NewScrapeChain(config *common.Config, logger arbor.ILogger, providers ...interfaces.ScrapeProvider) *fallback.Chain[models.SearchParams, []models.AdRecord] {
	chain := fallback.NewChain("scrape", logger, func(ads []models.AdRecord) bool { return len(ads) == 0 }, providers...)
	return chain.WithAttemptTimeout(common.ParseDuration(config.Jobs.AttemptTimeout, 6*time.Minute))
}
