package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"bridge-wrapped/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Tokens    TokensConfig    `mapstructure:"tokens"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	DefaultYear int    `mapstructure:"default_year"`
}

// ServerConfig drives the HTTP API.
type ServerConfig struct {
	Addr               string        `mapstructure:"addr"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CacheSweepInterval time.Duration `mapstructure:"cache_sweep_interval"`
	MetricsEnabled     bool          `mapstructure:"metrics_enabled"`
}

// ProvidersConfig groups the upstream bridge indexers.
type ProvidersConfig struct {
	Across ProviderConfig `mapstructure:"across"`
	Relay  ProviderConfig `mapstructure:"relay"`
	LiFi   ProviderConfig `mapstructure:"lifi"`
}

// ProviderConfig covers connectivity and pagination bounds for one provider.
type ProviderConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	PageSize       int           `mapstructure:"page_size"`
	MaxPages       int           `mapstructure:"max_pages"`
	MaxOffset      int           `mapstructure:"max_offset"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// RetryConfig defines the per-page backoff policy.
type RetryConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
	MaxDelay  time.Duration `mapstructure:"max_delay"`
}

// TokensConfig configures token metadata resolution.
type TokensConfig struct {
	CacheTTL      time.Duration       `mapstructure:"cache_ttl"`
	CoinMarketCap CoinMarketCapConfig `mapstructure:"coinmarketcap"`
}

// CoinMarketCapConfig holds the metadata lookup credential.
type CoinMarketCapConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the run log.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Retention       time.Duration `mapstructure:"retention"`
}

// TelegramConfig describes where `stats --share` posts summaries.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BRIDGEWRAPPED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Tokens.CoinMarketCap.APIKey == "" {
		cfg.Tokens.CoinMarketCap.APIKey = os.Getenv("COINMARKETCAP_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bridgewrapped")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.default_year", 2025)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "3m")
	v.SetDefault("server.request_timeout", "150s")
	v.SetDefault("server.cache_sweep_interval", "10m")
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("providers.across.enabled", true)
	v.SetDefault("providers.across.base_url", "https://app.across.to/api")
	v.SetDefault("providers.across.page_size", 100)
	v.SetDefault("providers.across.max_offset", 10000)
	v.SetDefault("providers.across.max_pages", 101)
	v.SetDefault("providers.across.request_timeout", "20s")
	v.SetDefault("providers.across.rate_limit", 5.0)

	v.SetDefault("providers.relay.enabled", true)
	v.SetDefault("providers.relay.base_url", "https://api.relay.link")
	v.SetDefault("providers.relay.page_size", 20)
	v.SetDefault("providers.relay.max_pages", 100)
	v.SetDefault("providers.relay.request_timeout", "20s")
	v.SetDefault("providers.relay.rate_limit", 5.0)

	v.SetDefault("providers.lifi.enabled", true)
	v.SetDefault("providers.lifi.base_url", "https://li.quest/v1")
	v.SetDefault("providers.lifi.page_size", 100)
	v.SetDefault("providers.lifi.max_pages", 100)
	v.SetDefault("providers.lifi.request_timeout", "20s")
	v.SetDefault("providers.lifi.rate_limit", 5.0)

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "8s")

	v.SetDefault("tokens.cache_ttl", "1h")
	v.SetDefault("tokens.coinmarketcap.api_key", "")
	v.SetDefault("tokens.coinmarketcap.base_url", "https://pro-api.coinmarketcap.com")
	v.SetDefault("tokens.coinmarketcap.request_timeout", "10s")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.retention", "2160h")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.dir", ".")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	providers := map[string]ProviderConfig{
		"across": c.Providers.Across,
		"relay":  c.Providers.Relay,
		"lifi":   c.Providers.LiFi,
	}
	for name, p := range providers {
		if !p.Enabled {
			continue
		}
		if p.BaseURL == "" {
			return fmt.Errorf("providers.%s.base_url is required", name)
		}
		if p.PageSize <= 0 {
			return fmt.Errorf("providers.%s.page_size must be greater than zero", name)
		}
		if p.MaxPages <= 0 {
			return fmt.Errorf("providers.%s.max_pages must be greater than zero", name)
		}
		if p.RateLimit < 0 {
			return fmt.Errorf("providers.%s.rate_limit cannot be negative", name)
		}
	}
	if c.Providers.Across.Enabled && c.Providers.Across.MaxOffset <= 0 {
		return fmt.Errorf("providers.across.max_offset must be greater than zero")
	}
	if c.Retry.Attempts <= 0 {
		return fmt.Errorf("retry.attempts must be greater than zero")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays cannot be negative")
	}
	if c.Tokens.CacheTTL <= 0 {
		return fmt.Errorf("tokens.cache_ttl must be greater than zero")
	}
	if c.App.DefaultYear < MinYear || c.App.DefaultYear > MaxYear {
		return fmt.Errorf("app.default_year must be between %d and %d", MinYear, MaxYear)
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// Accepted year range for wrapped queries.
const (
	MinYear = 2020
	MaxYear = 2030
)
