// Package config loads mcap settings from config.yaml, .env and MCAP_*
// environment variables.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TextQLLabs/market-cap-tracker/internal/collect"
	"github.com/TextQLLabs/market-cap-tracker/internal/ratelimit"
	"github.com/TextQLLabs/market-cap-tracker/internal/resilience"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
)

// Config holds the full application configuration.
type Config struct {
	Dataset    DatasetConfig              `yaml:"dataset" mapstructure:"dataset"`
	Sources    SourcesConfig              `yaml:"sources" mapstructure:"sources"`
	RateLimits map[string]ratelimit.Quota `yaml:"rate_limits" mapstructure:"rate_limits"`
	Chains     collect.Chains             `yaml:"chains" mapstructure:"chains"`
	Resilience ResilienceConfig           `yaml:"resilience" mapstructure:"resilience"`
	Store      StoreConfig                `yaml:"store" mapstructure:"store"`
	Batch      BatchConfig                `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig               `yaml:"server" mapstructure:"server"`
	Log        LogConfig                  `yaml:"log" mapstructure:"log"`
}

// DatasetConfig locates the market cap dataset and its backups.
type DatasetConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	BackupDir string `yaml:"backup_dir" mapstructure:"backup_dir"`
}

// SourcesConfig holds per-provider API settings.
type SourcesConfig struct {
	AlphaVantage AlphaVantageConfig `yaml:"alpha_vantage" mapstructure:"alpha_vantage"`
	Yahoo        YahooConfig        `yaml:"yahoo" mapstructure:"yahoo"`
	SECEdgar     SECEdgarConfig     `yaml:"sec_edgar" mapstructure:"sec_edgar"`
	Manual       ManualConfig       `yaml:"manual" mapstructure:"manual"`
	UserAgent    string             `yaml:"user_agent" mapstructure:"user_agent"`
}

// AlphaVantageConfig holds Alpha Vantage API settings.
type AlphaVantageConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// YahooConfig holds Yahoo Finance chart API settings.
type YahooConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SECEdgarConfig holds SEC EDGAR settings. The SEC rejects requests without
// a contact User-Agent.
type SECEdgarConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ManualConfig points at operator research files. Empty disables the
// manual provider.
type ManualConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ResilienceConfig tunes retries and circuit breakers for provider calls.
type ResilienceConfig struct {
	Retry   resilience.RetrySettings   `yaml:"retry" mapstructure:"retry"`
	Breaker resilience.BreakerSettings `yaml:"breaker" mapstructure:"breaker"`
}

// StoreConfig configures the run log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// BatchConfig configures multi-company collection.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MCAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("dataset.path", "data/market_caps.json")
	v.SetDefault("dataset.backup_dir", "data/backups")
	v.SetDefault("sources.user_agent", "market-cap-tracker/1.0")
	v.SetDefault("sources.alpha_vantage.key", "")
	v.SetDefault("sources.alpha_vantage.base_url", "https://www.alphavantage.co/query")
	v.SetDefault("sources.yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("sources.sec_edgar.base_url", "https://data.sec.gov")
	v.SetDefault("sources.sec_edgar.user_agent", "")
	v.SetDefault("sources.manual.path", "")
	v.SetDefault("rate_limits.alpha_vantage.calls_per_minute", 5)
	v.SetDefault("rate_limits.alpha_vantage.daily_limit", 500)
	v.SetDefault("rate_limits.yahoo.calls_per_minute", 60)
	v.SetDefault("rate_limits.yahoo.daily_limit", 0)
	v.SetDefault("rate_limits.sec_edgar.calls_per_minute", 10)
	v.SetDefault("rate_limits.sec_edgar.daily_limit", 0)
	def := collect.DefaultChains()
	v.SetDefault("chains.modern", def.Modern)
	v.SetDefault("chains.filing_era", def.FilingEra)
	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.initial_backoff", "1s")
	v.SetDefault("resilience.retry.max_backoff", "30s")
	v.SetDefault("resilience.breaker.failure_threshold", 5)
	v.SetDefault("resilience.breaker.reset_timeout", "1m")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/runs.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("batch.max_concurrent_companies", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

var knownSources = map[string]bool{
	source.NameYahoo:        true,
	source.NameAlphaVantage: true,
	source.NameSECEdgar:     true,
	source.NameManual:       true,
}

// Validate checks the settings a command needs. mode is the command name;
// unknown modes only get the common checks.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Dataset.Path == "" {
		errs = append(errs, "dataset.path is required")
	}

	switch mode {
	case "collect":
		if len(c.Chains.Modern) == 0 {
			errs = append(errs, "chains.modern must name at least one source")
		}
		for _, name := range append(append([]string{}, c.Chains.Modern...), c.Chains.FilingEra...) {
			if !knownSources[name] {
				errs = append(errs, "chains: unknown source "+name)
			}
		}
		if c.Batch.MaxConcurrentCompanies <= 0 {
			errs = append(errs, "batch.max_concurrent_companies must be positive")
		}
		errs = append(errs, c.validateStore()...)
	case "runs":
		errs = append(errs, c.validateStore()...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		errs = append(errs, c.validateStore()...)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
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
