package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrMissingKey is returned by Validate when a required setting is empty.
var ErrMissingKey = eris.New("config: missing required setting")

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Serper    SerperConfig    `yaml:"serper" mapstructure:"serper"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Plan      PlanConfig      `yaml:"plan" mapstructure:"plan"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MaxTemperature caps anthropic.temperature. Extraction and planning
// prompts need near-deterministic output.
const MaxTemperature = 0.1

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// SearchConfig selects and tunes the web-search backend.
type SearchConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	TopN        int    `yaml:"top_n" mapstructure:"top_n"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// JinaConfig holds Jina search and reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// SerperConfig holds Serper API settings.
type SerperConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GoogleConfig holds the optional Places API key used for venue ratings.
type GoogleConfig struct {
	PlacesKey string `yaml:"places_key" mapstructure:"places_key"`
}

// FetchConfig configures the content fetcher.
type FetchConfig struct {
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinChars       int    `yaml:"min_chars" mapstructure:"min_chars"`
	MaxBytes       int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
	Headless       bool   `yaml:"headless" mapstructure:"headless"`
	ReaderFallback bool   `yaml:"reader_fallback" mapstructure:"reader_fallback"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
}

// RateLimitConfig sets the minimum spacing per API class.
type RateLimitConfig struct {
	SearchMs int `yaml:"search_ms" mapstructure:"search_ms"`
	WebMs    int `yaml:"web_ms" mapstructure:"web_ms"`
	LLMMs    int `yaml:"llm_ms" mapstructure:"llm_ms"`
	JitterMs int `yaml:"jitter_ms" mapstructure:"jitter_ms"`
}

// RetryConfig sets the shared backoff policy for outbound calls.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseMs      int `yaml:"base_ms" mapstructure:"base_ms"`
	JitterMs    int `yaml:"jitter_ms" mapstructure:"jitter_ms"`
}

// DiscoveryConfig tunes the vendor discovery pipeline.
type DiscoveryConfig struct {
	Quota         int `yaml:"quota" mapstructure:"quota"`
	MaxHits       int `yaml:"max_hits" mapstructure:"max_hits"`
	FanoutWidth   int `yaml:"fanout_width" mapstructure:"fanout_width"`
	EnrichWidth   int `yaml:"enrich_width" mapstructure:"enrich_width"`
	TimeoutSecs   int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLHours int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	ContentBudget int `yaml:"content_budget" mapstructure:"content_budget"`
}

// PlanConfig configures plan generation.
type PlanConfig struct {
	RescaleBudgets bool    `yaml:"rescale_budgets" mapstructure:"rescale_budgets"`
	Tolerance      float64 `yaml:"tolerance" mapstructure:"tolerance"`
}

// SMTPConfig holds outbound mail settings for invitations.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml, which may be absent; a named file must
// exist.
func LoadFile(path string) (*Config, error) {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "planner.db")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("search.provider", "jina")
	v.SetDefault("search.top_n", 10)
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("serper.key", "")
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("google.places_key", "")
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.min_chars", 200)
	v.SetDefault("fetch.max_bytes", 2<<20)
	v.SetDefault("fetch.headless", false)
	v.SetDefault("fetch.reader_fallback", true)
	v.SetDefault("fetch.user_agent", defaultUserAgent)
	v.SetDefault("ratelimit.search_ms", 1000)
	v.SetDefault("ratelimit.web_ms", 500)
	v.SetDefault("ratelimit.llm_ms", 1500)
	v.SetDefault("ratelimit.jitter_ms", 500)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_ms", 1000)
	v.SetDefault("retry.jitter_ms", 1000)
	v.SetDefault("discovery.quota", 5)
	v.SetDefault("discovery.max_hits", 10)
	v.SetDefault("discovery.fanout_width", 4)
	v.SetDefault("discovery.enrich_width", 3)
	v.SetDefault("discovery.timeout_secs", 90)
	v.SetDefault("discovery.cache_ttl_hours", 24)
	v.SetDefault("discovery.content_budget", 4000)
	v.SetDefault("plan.rescale_budgets", true)
	v.SetDefault("plan.tolerance", 0.05)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that the settings a command needs are present. mode is
// one of "plan", "discover", "invite", "serve" or "store".
func (c *Config) Validate(mode string) error {
	var missing []string
	need := func(val, key string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key+" is required")
		}
	}

	temperature := func() {
		if t := c.Anthropic.Temperature; t < 0 || t > MaxTemperature {
			missing = append(missing, fmt.Sprintf("anthropic.temperature %g is outside [0, %g]", t, MaxTemperature))
		}
	}

	switch mode {
	case "plan":
		need(c.Anthropic.Key, "anthropic.key")
		temperature()
	case "discover":
		need(c.Anthropic.Key, "anthropic.key")
		temperature()
		switch c.Search.Provider {
		case "serper":
			need(c.Serper.Key, "serper.key")
		case "jina", "":
			need(c.Jina.Key, "jina.key")
		default:
			missing = append(missing, fmt.Sprintf("search.provider %q is not supported", c.Search.Provider))
		}
	case "invite":
		need(c.SMTP.Host, "smtp.host")
		need(c.SMTP.From, "smtp.from")
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			missing = append(missing, fmt.Sprintf("server.port %d is invalid", c.Server.Port))
		}
	case "store":
		need(c.Store.DatabaseURL, "store.database_url")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres", "":
	default:
		missing = append(missing, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if len(missing) > 0 {
		return eris.Wrap(ErrMissingKey, strings.Join(missing, "; "))
	}
	return nil
}

// FetchTimeout returns the per-request fetch timeout.
func (c FetchConfig) FetchTimeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RequestTimeout returns the per-service discovery budget.
func (c DiscoveryConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheTTL returns how long discovery results stay cached.
func (c DiscoveryConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
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
