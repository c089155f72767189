package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
	Storage     StorageConfig     `toml:"storage"`
	Jobs        JobsConfig        `toml:"jobs"`
	Poller      PollerConfig      `toml:"poller"`
	Apify       ApifyConfig       `toml:"apify"`
	GraphAPI    GraphAPIConfig    `toml:"graph_api"`
	Browser     BrowserConfig     `toml:"browser"`
	HTTPScraper HTTPScraperConfig `toml:"http_scraper"`
	LocalLLM    LocalLLMConfig    `toml:"local_llm"`
	Claude      ClaudeConfig      `toml:"claude"`
	Gemini      GeminiConfig      `toml:"gemini"`
	LLM         LLMConfig         `toml:"llm"`
	WebSocket   WebSocketConfig   `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig controls the optional archive of terminal jobs and workflows
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// JobsConfig controls scrape jobs and workflows
type JobsConfig struct {
	Deadline         string `toml:"deadline"`          // Overall deadline per job/workflow run (default: "10m")
	AttemptTimeout   string `toml:"attempt_timeout"`   // Per-provider attempt deadline (default: "6m")
	Retention        string `toml:"retention"`         // Terminal records older than this are evicted (default: "24h")
	EvictionSchedule string `toml:"eviction_schedule"` // Cron schedule for eviction (default: "@every 5m")
	DefaultLimit     int    `toml:"default_limit"`     // Ads per scrape when the request omits limit
	DefaultRegion    string `toml:"default_region"`    // Region when the request omits it
	PageLimit        int    `toml:"page_limit"`        // Ads per page inside a workflow
	MaxCompetitors   int    `toml:"max_competitors"`   // Upper bound on competitor URLs per workflow
	PageConcurrency  int    `toml:"page_concurrency"`  // Pages of one workflow scraped at once (0 = all)
}

// PollerConfig controls remote run polling
type PollerConfig struct {
	Interval string `toml:"interval"` // Status poll interval (default: "2s")
	MaxWait  string `toml:"max_wait"` // Hard limit per remote run (default: "5m")
}

// ApifyConfig contains the managed scraping service configuration
type ApifyConfig struct {
	Enabled  bool   `toml:"enabled"`
	Token    string `toml:"token"`
	ActorID  string `toml:"actor_id"`
	BaseURL  string `toml:"base_url"`
	Timeout  string `toml:"timeout"`   // HTTP request timeout (default: "30s")
	MaxItems int    `toml:"max_items"` // Hard cap on dataset items fetched
}

// GraphAPIConfig contains the Meta Ad Library API configuration
type GraphAPIConfig struct {
	Enabled     bool   `toml:"enabled"`
	AccessToken string `toml:"access_token"`
	BaseURL     string `toml:"base_url"`
	Version     string `toml:"version"`
	RateLimit   string `toml:"rate_limit"` // Minimum time between API requests (default: "1s")
	MaxPages    int    `toml:"max_pages"`  // Pagination cap per search
}

// BrowserConfig contains headless browser scraping configuration
type BrowserConfig struct {
	Enabled   bool   `toml:"enabled"`
	Headless  bool   `toml:"headless"`
	UserAgent string `toml:"user_agent"`
	WaitTime  string `toml:"wait_time"` // Time to wait for JavaScript to render (default: "3s")
	Timeout   string `toml:"timeout"`   // Navigation timeout (default: "45s")
}

// HTTPScraperConfig contains plain HTTP heuristic scraping configuration
type HTTPScraperConfig struct {
	Enabled     bool   `toml:"enabled"`
	BaseURL     string `toml:"base_url"` // Ad Library web URL
	UserAgent   string `toml:"user_agent"`
	Timeout     string `toml:"timeout"`
	MaxBodySize int    `toml:"max_body_size"`
}

// LocalLLMConfig contains the self-hosted model configuration (llama-server or any OpenAI-compatible endpoint)
type LocalLLMConfig struct {
	Enabled     bool    `toml:"enabled"`
	URL         string  `toml:"url"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMConfig controls the AI provider chain
type LLMConfig struct {
	ProviderOrder []string `toml:"provider_order"` // Subset/order of "local", "claude", "gemini"; enhanced is always last
}

// WebSocketConfig contains progress streaming configuration
type WebSocketConfig struct {
	ProgressThrottle string   `toml:"progress_throttle"` // Max one progress event per id per interval (default: "500ms")
	AllowedEvents    []string `toml:"allowed_events"`    // Empty list allows all events
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: false,
				Path:    "./data",
			},
		},
		Jobs: JobsConfig{
			Deadline:         "10m",
			AttemptTimeout:   "6m",
			Retention:        "24h",
			EvictionSchedule: "@every 5m",
			DefaultLimit:     50,
			DefaultRegion:    "US",
			PageLimit:        25,
			MaxCompetitors:   5,
			PageConcurrency:  4,
		},
		Poller: PollerConfig{
			Interval: "2s",
			MaxWait:  "5m",
		},
		Apify: ApifyConfig{
			Enabled:  true,
			ActorID:  "curious_coder~facebook-ads-library-scraper",
			BaseURL:  "https://api.apify.com/v2",
			Timeout:  "30s",
			MaxItems: 200,
		},
		GraphAPI: GraphAPIConfig{
			Enabled:   true,
			BaseURL:   "https://graph.facebook.com",
			Version:   "v19.0",
			RateLimit: "1s",
			MaxPages:  5,
		},
		Browser: BrowserConfig{
			Enabled:   true,
			Headless:  true,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WaitTime:  "3s",
			Timeout:   "45s",
		},
		HTTPScraper: HTTPScraperConfig{
			Enabled:     true,
			BaseURL:     "https://www.facebook.com/ads/library/",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Timeout:     "30s",
			MaxBodySize: 10 * 1024 * 1024, // 10MB
		},
		LocalLLM: LocalLLMConfig{
			Enabled:     false, // Requires a running llama-server
			URL:         "http://127.0.0.1:8086",
			Model:       "local",
			MaxTokens:   2048,
			Temperature: 0.3,
			Timeout:     "2m",
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   4096,
			Timeout:     "2m",
			Temperature: 0.4,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     "2m",
			Temperature: 0.4,
		},
		LLM: LLMConfig{
			ProviderOrder: []string{"local", "claude", "gemini"},
		},
		WebSocket: WebSocketConfig{
			ProgressThrottle: "500ms",
			AllowedEvents:    []string{},
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ADSCOPE_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("ADSCOPE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ADSCOPE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("ADSCOPE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ADSCOPE_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitList(output)
	}

	// Storage configuration
	if enabled := os.Getenv("ADSCOPE_BADGER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Storage.Badger.Enabled = b
		}
	}
	if badgerPath := os.Getenv("ADSCOPE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Jobs configuration
	if deadline := os.Getenv("ADSCOPE_JOBS_DEADLINE"); deadline != "" {
		config.Jobs.Deadline = deadline
	}
	if attemptTimeout := os.Getenv("ADSCOPE_JOBS_ATTEMPT_TIMEOUT"); attemptTimeout != "" {
		config.Jobs.AttemptTimeout = attemptTimeout
	}
	if retention := os.Getenv("ADSCOPE_JOBS_RETENTION"); retention != "" {
		config.Jobs.Retention = retention
	}

	// Poller configuration
	if interval := os.Getenv("ADSCOPE_POLLER_INTERVAL"); interval != "" {
		config.Poller.Interval = interval
	}
	if maxWait := os.Getenv("ADSCOPE_POLLER_MAX_WAIT"); maxWait != "" {
		config.Poller.MaxWait = maxWait
	}

	// Provider credentials (conventional names first, then ADSCOPE_*)
	if token := os.Getenv("APIFY_API_TOKEN"); token != "" {
		config.Apify.Token = token
	}
	if token := os.Getenv("ADSCOPE_APIFY_TOKEN"); token != "" {
		config.Apify.Token = token
	}
	if actorID := os.Getenv("ADSCOPE_APIFY_ACTOR_ID"); actorID != "" {
		config.Apify.ActorID = actorID
	}
	if token := os.Getenv("META_ACCESS_TOKEN"); token != "" {
		config.GraphAPI.AccessToken = token
	}
	if token := os.Getenv("ADSCOPE_GRAPH_API_ACCESS_TOKEN"); token != "" {
		config.GraphAPI.AccessToken = token
	}
	if headless := os.Getenv("ADSCOPE_BROWSER_HEADLESS"); headless != "" {
		if b, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = b
		}
	}

	// LLM configuration
	if url := os.Getenv("ADSCOPE_LOCAL_LLM_URL"); url != "" {
		config.LocalLLM.URL = url
		config.LocalLLM.Enabled = true
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("ADSCOPE_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("ADSCOPE_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("ADSCOPE_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("ADSCOPE_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if order := os.Getenv("ADSCOPE_LLM_PROVIDER_ORDER"); order != "" {
		config.LLM.ProviderOrder = splitList(order)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Jobs.EvictionSchedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Jobs.EvictionSchedule); err != nil {
			return fmt.Errorf("invalid jobs.eviction_schedule: %w", err)
		}
	}
	for _, name := range c.LLM.ProviderOrder {
		switch name {
		case "local", "claude", "gemini":
		default:
			return fmt.Errorf("unknown llm provider %q in llm.provider_order", name)
		}
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ParseDuration parses a duration string, returning fallback when empty or invalid
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
