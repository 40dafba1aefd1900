package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi" mapstructure:"serpapi"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Provoke    ProvokeConfig    `yaml:"provoke" mapstructure:"provoke"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SearchConfig configures candidate collection.
type SearchConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"` // "serpapi" or "jina"
	TimeRange   string `yaml:"time_range" mapstructure:"time_range"`
	NumResults  int    `yaml:"num_results" mapstructure:"num_results"`
	Retries     int    `yaml:"retries" mapstructure:"retries"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-search timeout.
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SerpAPIConfig holds SerpApi credentials.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Model      string `yaml:"model" mapstructure:"model"`
	MaxTokens  int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	CacheTTL   string `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// LLMConfig selects the free-text generator used for market inference and
// provocations.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "anthropic" or "perplexity"
}

// ScrapeConfig configures page fetching.
type ScrapeConfig struct {
	UserAgent       string   `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs     int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit       int      `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second per host
	MaxBodyBytes    int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxContentChars int      `yaml:"max_content_chars" mapstructure:"max_content_chars"`
	ExcludePaths    []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// ExtractConfig configures the extraction engine.
type ExtractConfig struct {
	MaxCandidates   int  `yaml:"max_candidates" mapstructure:"max_candidates"`
	Concurrent      bool `yaml:"concurrent" mapstructure:"concurrent"`
	Workers         int  `yaml:"workers" mapstructure:"workers"`
	CallTimeoutSecs int  `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
}

// CallTimeout returns the per-URL extraction timeout.
func (c ExtractConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSecs) * time.Second
}

// ProvokeConfig configures provocation generation.
type ProvokeConfig struct {
	Company      string `yaml:"company" mapstructure:"company"`
	Responses    int    `yaml:"responses" mapstructure:"responses"`
	TemplatePath string `yaml:"template_path" mapstructure:"template_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml; a named file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("INSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so AutomaticEnv can bind them.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "insights.db")
	v.SetDefault("search.provider", "serpapi")
	v.SetDefault("search.time_range", "")
	v.SetDefault("search.num_results", 250)
	v.SetDefault("search.retries", 2)
	v.SetDefault("search.timeout_secs", 30)
	v.SetDefault("serpapi.key", "")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.cache_ttl", "5m")
	v.SetDefault("anthropic.max_retries", 2)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; market-insights/1.0)")
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.rate_limit", 2)
	v.SetDefault("scrape.max_body_bytes", 20<<20)
	v.SetDefault("scrape.max_content_chars", 400000)
	v.SetDefault("scrape.exclude_paths", []string{})
	v.SetDefault("extract.max_candidates", 50)
	v.SetDefault("extract.concurrent", false)
	v.SetDefault("extract.workers", 5)
	v.SetDefault("extract.call_timeout_secs", 120)
	v.SetDefault("provoke.company", "")
	v.SetDefault("provoke.responses", 2)
	v.SetDefault("provoke.template_path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings the given command needs are present.
// Known commands: "run", "serve", "provoke", "markets". All problems are
// reported together.
func (c *Config) Validate(command string) error {
	var missing []string

	needLLM := func() {
		switch c.LLM.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				missing = append(missing, "anthropic.key")
			}
		case "perplexity":
			if c.Perplexity.Key == "" {
				missing = append(missing, "perplexity.key")
			}
		default:
			missing = append(missing, fmt.Sprintf("llm.provider (unknown %q)", c.LLM.Provider))
		}
	}

	needSearch := func() {
		switch c.Search.Provider {
		case "serpapi":
			if c.SerpAPI.Key == "" {
				missing = append(missing, "serpapi.key")
			}
		case "jina":
			if c.Jina.Key == "" {
				missing = append(missing, "jina.key")
			}
		default:
			missing = append(missing, fmt.Sprintf("search.provider (unknown %q)", c.Search.Provider))
		}
	}

	needStore := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				missing = append(missing, "store.database_url")
			}
		default:
			missing = append(missing, fmt.Sprintf("store.driver (unknown %q)", c.Store.Driver))
		}
	}

	switch command {
	case "run", "serve":
		needSearch()
		needLLM()
		needStore()
		// Structured extraction always goes through Anthropic.
		if c.LLM.Provider != "anthropic" && c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key")
		}
		if c.Extract.MaxCandidates <= 0 {
			missing = append(missing, "extract.max_candidates (must be > 0)")
		}
		if c.Extract.Concurrent && c.Extract.Workers <= 0 {
			missing = append(missing, "extract.workers (must be > 0)")
		}
		if command == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			missing = append(missing, "server.port (must be 1-65535)")
		}
	case "provoke":
		needLLM()
		if c.Provoke.Company == "" {
			missing = append(missing, "provoke.company")
		}
	case "markets":
		needLLM()
	case "runs":
		needStore()
	default:
		return eris.Errorf("config: unknown command %q", command)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing or invalid settings for %s: %s", command, strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
