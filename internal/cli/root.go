package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/yapay-ai/provider-sentinel/internal/config"
	"github.com/yapay-ai/provider-sentinel/pkg/aiclient"
	"github.com/yapay-ai/provider-sentinel/pkg/alerts"
	"github.com/yapay-ai/provider-sentinel/pkg/breaker"
	"github.com/yapay-ai/provider-sentinel/pkg/cache"
	"github.com/yapay-ai/provider-sentinel/pkg/gateway"
	"github.com/yapay-ai/provider-sentinel/pkg/ledger"
	"github.com/yapay-ai/provider-sentinel/pkg/model"
	"github.com/yapay-ai/provider-sentinel/pkg/pricing"
	"github.com/yapay-ai/provider-sentinel/pkg/retry"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Provider Sentinel - resilient, cost-governed access to AI providers",
	Long: `Provider Sentinel sits between application logic and AI text generation
and literature search providers. Every call flows through a content-addressed
response cache, a circuit-breaker protected retry engine with provider
failover, and an append-only usage ledger with quota enforcement.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.sentinel/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initRates loads every rate table from the pricing directory.
func initRates(cfg *config.Config) (*pricing.Registry, error) {
	pricingDir := cfg.Pricing.Dir

	// Try relative to executable when the configured dir is absent
	if _, err := os.Stat(pricingDir); os.IsNotExist(err) {
		exePath, _ := os.Executable()
		if exePath != "" {
			altDir := filepath.Join(filepath.Dir(exePath), "pricing")
			if _, altErr := os.Stat(altDir); altErr == nil {
				pricingDir = altDir
			}
		}
	}

	tables, err := pricing.LoadDir(pricingDir)
	if err != nil {
		return nil, fmt.Errorf("load rate tables: %w", err)
	}

	registry := pricing.NewRegistry()
	for _, table := range tables {
		if err := registry.Register(table); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// initGenerators creates the configured text generation clients.
func initGenerators(cfg *config.Config) *aiclient.Manager {
	var gens []aiclient.Generator

	if cfg.Providers.Claude.APIKey != "" {
		gens = append(gens, aiclient.NewAnthropicClient(
			cfg.Providers.Claude.BaseURL,
			cfg.Providers.Claude.APIKey,
			cfg.Providers.Claude.Model,
		))
	}
	if cfg.Providers.Kimi.APIKey != "" {
		gens = append(gens, aiclient.NewOpenAICompatClient("kimi",
			cfg.Providers.Kimi.BaseURL,
			cfg.Providers.Kimi.APIKey,
			cfg.Providers.Kimi.Model,
		))
	}
	if cfg.Providers.Qwen.APIKey != "" {
		gens = append(gens, aiclient.NewOpenAICompatClient("qwen",
			cfg.Providers.Qwen.BaseURL,
			cfg.Providers.Qwen.APIKey,
			cfg.Providers.Qwen.Model,
		))
	}

	return aiclient.NewManager(gens...)
}

// providerOrder filters the configured failover order down to providers
// that actually have a client.
func providerOrder(cfg *config.Config, mgr *aiclient.Manager) []string {
	available := make(map[string]bool)
	for _, name := range mgr.Providers() {
		available[name] = true
	}

	var order []string
	for _, name := range cfg.Providers.Order {
		if available[name] {
			order = append(order, name)
		}
	}
	return order
}

// system is the fully wired runtime shared by the CLI commands.
type system struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *cache.Store
	storage  ledger.Storage
	breakers *breaker.Registry
	gateway  *gateway.Gateway
}

func (s *system) Close() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

func (s *system) quotaPolicy() model.QuotaPolicy {
	return model.QuotaPolicy{
		DailyLimitUSD:   s.cfg.Quota.DailyLimitUSD,
		MonthlyLimitUSD: s.cfg.Quota.MonthlyLimitUSD,
	}
}

// initSystem wires cache, ledger, breakers, retry engine, and gateway.
func initSystem(cfg *config.Config) (*system, error) {
	logger := newLogger(cfg)

	rates, err := initRates(cfg)
	if err != nil {
		return nil, err
	}

	store, err := cache.New(cfg.Cache.Path, cfg.Cache.MaxSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	storage, err := ledger.NewSQLite(cfg.Storage.Path)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init ledger storage: %w", err)
	}

	led := ledger.New(storage, rates, logger)

	recovery, err := time.ParseDuration(cfg.Breaker.RecoveryTimeout)
	if err != nil {
		recovery = 0
	}
	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  recovery,
	})

	baseDelay, _ := time.ParseDuration(cfg.Retry.BaseDelay)
	maxDelay, _ := time.ParseDuration(cfg.Retry.MaxDelay)
	engine := retry.NewEngine(retry.Config{
		MaxAttemptsPerProvider: cfg.Retry.MaxAttemptsPerProvider,
		BaseDelay:              baseDelay,
		MaxDelay:               maxDelay,
	}, breakers, logger)

	defaultTTL, err := cfg.Cache.DefaultTTLDuration()
	if err != nil {
		storage.Close()
		store.Close()
		return nil, err
	}
	perOpTTL, err := cfg.Cache.OperationTTLs()
	if err != nil {
		storage.Close()
		store.Close()
		return nil, err
	}

	gw := gateway.New(store, engine, led, initNotifiers(cfg), gateway.Options{
		TTL:        perOpTTL,
		DefaultTTL: defaultTTL,
		Quota: model.QuotaPolicy{
			DailyLimitUSD:   cfg.Quota.DailyLimitUSD,
			MonthlyLimitUSD: cfg.Quota.MonthlyLimitUSD,
		},
		KeyIncludeProvider: cfg.Cache.IncludeProvider,
		AlertThresholdPct:  cfg.Alerts.ThresholdPct,
	}, logger)

	return &system{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		storage:  storage,
		breakers: breakers,
		gateway:  gw,
	}, nil
}
