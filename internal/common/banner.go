package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the enabled providers
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("AdScope", GetVersion())

	logger.Info().
		Bool("apify", config.Apify.Enabled && config.Apify.Token != "").
		Bool("graph_api", config.GraphAPI.Enabled && config.GraphAPI.AccessToken != "").
		Bool("browser", config.Browser.Enabled).
		Bool("http_scraper", config.HTTPScraper.Enabled).
		Strs("llm_order", config.LLM.ProviderOrder).
		Bool("archive", config.Storage.Badger.Enabled).
		Msg("Providers configured")
}
