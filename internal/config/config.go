package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all Provider Sentinel configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Search    SearchConfig    `mapstructure:"search"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// StorageConfig defines usage ledger database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig defines response cache settings.
type CacheConfig struct {
	Path            string            `mapstructure:"path"`
	MaxSizeBytes    int64             `mapstructure:"max_size_bytes"`
	DefaultTTL      string            `mapstructure:"default_ttl"`
	TTLPerOperation map[string]string `mapstructure:"ttl_per_operation"`
	IncludeProvider bool              `mapstructure:"include_provider_in_key"`
}

// DefaultTTLDuration parses the configured default TTL.
func (c CacheConfig) DefaultTTLDuration() (time.Duration, error) {
	return parseTTL(c.DefaultTTL)
}

// OperationTTLs parses the per-operation TTL overrides.
func (c CacheConfig) OperationTTLs() (map[string]time.Duration, error) {
	out := make(map[string]time.Duration, len(c.TTLPerOperation))
	for op, raw := range c.TTLPerOperation {
		d, err := parseTTL(raw)
		if err != nil {
			return nil, fmt.Errorf("ttl for operation %q: %w", op, err)
		}
		out[op] = d
	}
	return out, nil
}

func parseTTL(raw string) (time.Duration, error) {
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	return d, nil
}

// RetryConfig defines retry engine settings.
type RetryConfig struct {
	MaxAttemptsPerProvider int    `mapstructure:"max_attempts_per_provider"`
	BaseDelay              string `mapstructure:"base_delay"`
	MaxDelay               string `mapstructure:"max_delay"`
}

// BreakerConfig defines circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"`
}

// QuotaConfig defines spending limits in USD.
type QuotaConfig struct {
	DailyLimitUSD   float64 `mapstructure:"daily_limit_usd"`
	MonthlyLimitUSD float64 `mapstructure:"monthly_limit_usd"`
}

// ProvidersConfig defines generation provider credentials and order.
type ProvidersConfig struct {
	Order  []string       `mapstructure:"order"`
	Claude ProviderConfig `mapstructure:"claude"`
	Kimi   ProviderConfig `mapstructure:"kimi"`
	Qwen   ProviderConfig `mapstructure:"qwen"`
}

// ProviderConfig defines one provider's connection settings.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// SearchConfig defines the literature search endpoint.
type SearchConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	ThresholdPct float64       `mapstructure:"threshold_pct"`
	Slack        SlackConfig   `mapstructure:"slack"`
	Webhook      WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// PricingConfig defines rate table settings.
type PricingConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig defines metrics API settings.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".sentinel"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".sentinel", "usage.db"))
	v.SetDefault("cache.path", filepath.Join(home, ".sentinel", "cache.db"))
	v.SetDefault("cache.max_size_bytes", 256*1024*1024) // 256 MB
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.include_provider_in_key", false)
	v.SetDefault("retry.max_attempts_per_provider", 2)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "60s")
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout", "60s")
	v.SetDefault("providers.order", []string{"claude", "kimi", "qwen"})
	v.SetDefault("providers.claude.model", "claude-sonnet-4-20250514")
	v.SetDefault("providers.kimi.base_url", "https://api.moonshot.cn/v1")
	v.SetDefault("providers.kimi.model", "moonshot-v1-8k")
	v.SetDefault("providers.qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("providers.qwen.model", "qwen-turbo")
	v.SetDefault("alerts.threshold_pct", 80.0)
	v.SetDefault("alerts.slack.channel", "#ai-costs")
	v.SetDefault("pricing.dir", "pricing/")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
