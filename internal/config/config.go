package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Serper    SerperConfig    `yaml:"serper" mapstructure:"serper"`
	Reader    ReaderConfig    `yaml:"reader" mapstructure:"reader"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Events    EventsConfig    `yaml:"events" mapstructure:"events"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for criteria extraction and
// result summarization.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SerperConfig holds Serper web search API settings.
type SerperConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
}

// ReaderConfig holds the page reader service settings used by the profile
// crawl source.
type ReaderConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SourcesConfig configures the search dispatcher.
type SourcesConfig struct {
	MaxInflight          int     `yaml:"max_inflight" mapstructure:"max_inflight"`
	TimeoutSecs          int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec           float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst            int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	RetryMaxAttempts     int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialMs       int     `yaml:"retry_initial_ms" mapstructure:"retry_initial_ms"`
	RetryMaxMs           int     `yaml:"retry_max_ms" mapstructure:"retry_max_ms"`
	BreakerThreshold     int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs     int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	DirectoryBaseURL     string  `yaml:"directory_base_url" mapstructure:"directory_base_url"`
	MaxQueriesPerSource  int     `yaml:"max_queries_per_source" mapstructure:"max_queries_per_source"`
	MaxResultsPerCompany int     `yaml:"max_results_per_company" mapstructure:"max_results_per_company"`
	MaxProfilesPerSearch int     `yaml:"max_profiles_per_search" mapstructure:"max_profiles_per_search"`
}

// ScoringConfig holds the confidence band weights. The three bands sum to
// the maximum score of 100.
type ScoringConfig struct {
	ToolBand    int `yaml:"tool_band" mapstructure:"tool_band"`
	RoleBand    int `yaml:"role_band" mapstructure:"role_band"`
	ContextBand int `yaml:"context_band" mapstructure:"context_band"`
	MinScore    int `yaml:"min_score" mapstructure:"min_score"`
}

// EventsConfig configures the per-search event recorder.
type EventsConfig struct {
	Retention int `yaml:"retention" mapstructure:"retention"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration is usable for the given mode
// ("search", "serve", or "migrate"). All problems are reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "search", "serve":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Serper.Key == "" {
			problems = append(problems, "serper.key is required")
		}
	case "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" || mode == "migrate" {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}
	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}
	if c.Sources.MaxInflight < 1 || c.Sources.MaxInflight > 32 {
		problems = append(problems, "sources.max_inflight must be between 1 and 32")
	}
	if c.Scoring.ToolBand < 0 || c.Scoring.RoleBand < 0 || c.Scoring.ContextBand < 0 {
		problems = append(problems, "scoring band weights must be >= 0")
	}
	if sum := c.Scoring.ToolBand + c.Scoring.RoleBand + c.Scoring.ContextBand; sum != 100 {
		problems = append(problems, "scoring band weights must sum to 100")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospector.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2000)
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("serper.max_results", 20)
	v.SetDefault("reader.base_url", "https://r.jina.ai")
	v.SetDefault("sources.max_inflight", 4)
	v.SetDefault("sources.timeout_secs", 25)
	v.SetDefault("sources.rate_per_sec", 2.0)
	v.SetDefault("sources.rate_burst", 4)
	v.SetDefault("sources.retry_max_attempts", 3)
	v.SetDefault("sources.retry_initial_ms", 500)
	v.SetDefault("sources.retry_max_ms", 8000)
	v.SetDefault("sources.breaker_threshold", 5)
	v.SetDefault("sources.breaker_reset_secs", 30)
	v.SetDefault("sources.max_queries_per_source", 4)
	v.SetDefault("sources.max_results_per_company", 20)
	v.SetDefault("sources.max_profiles_per_search", 6)
	v.SetDefault("scoring.tool_band", 50)
	v.SetDefault("scoring.role_band", 25)
	v.SetDefault("scoring.context_band", 25)
	v.SetDefault("scoring.min_score", 0)
	v.SetDefault("events.retention", 200)

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
