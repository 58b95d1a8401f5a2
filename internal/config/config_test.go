package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/provider-sentinel/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"claude", "kimi", "qwen"}, cfg.Providers.Order)
	assert.Equal(t, 2, cfg.Retry.MaxAttemptsPerProvider)
	assert.Equal(t, "1s", cfg.Retry.BaseDelay)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, "60s", cfg.Breaker.RecoveryTimeout)
	assert.Equal(t, "24h", cfg.Cache.DefaultTTL)
	assert.False(t, cfg.Cache.IncludeProvider)
	assert.Equal(t, 80.0, cfg.Alerts.ThresholdPct)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "pricing/", cfg.Pricing.Dir)
	assert.Zero(t, cfg.Quota.DailyLimitUSD)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
storage:
  path: /tmp/usage.db
cache:
  default_ttl: 1h
  ttl_per_operation:
    search: 168h
quota:
  daily_limit_usd: 10.0
  monthly_limit_usd: 200.0
providers:
  order: [kimi, claude]
logging:
  level: debug
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/usage.db", cfg.Storage.Path)
	assert.Equal(t, []string{"kimi", "claude"}, cfg.Providers.Order)
	assert.Equal(t, 10.0, cfg.Quota.DailyLimitUSD)
	assert.Equal(t, 200.0, cfg.Quota.MonthlyLimitUSD)
	assert.Equal(t, "debug", cfg.Logging.Level)

	ttl, err := cfg.Cache.DefaultTTLDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	perOp, err := cfg.Cache.OperationTTLs()
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, perOp["search"])
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_LOGGING_LEVEL", "error")
	t.Setenv("SENTINEL_SERVER_LISTEN", ":7070")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}

func TestCacheConfig_BadTTL(t *testing.T) {
	c := config.CacheConfig{DefaultTTL: "soon"}
	_, err := c.DefaultTTLDuration()
	assert.Error(t, err)

	c = config.CacheConfig{TTLPerOperation: map[string]string{"generate": "whenever"}}
	_, err = c.OperationTTLs()
	assert.Error(t, err)
}
