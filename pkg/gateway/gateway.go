// Package gateway is the orchestration facade: each call flows through
// cache lookup, quota enforcement, the retry engine, usage metering, and
// finally a cache write. Callers never talk to the cache, breakers, or
// ledger directly for the request path.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yapay-ai/provider-sentinel/pkg/alerts"
	"github.com/yapay-ai/provider-sentinel/pkg/cache"
	"github.com/yapay-ai/provider-sentinel/pkg/ledger"
	"github.com/yapay-ai/provider-sentinel/pkg/model"
	"github.com/yapay-ai/provider-sentinel/pkg/retry"
)

// ErrQuotaExceeded is returned before any provider is contacted when the
// configured quota windows are exhausted.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Invocation is the outcome of one provider attempt. On failure the
// invoke function may still return a non-nil Invocation whose unit counts
// reflect work the provider billed before erroring.
type Invocation struct {
	// Value is the payload to cache and return.
	Value []byte

	// Model is the concrete model or endpoint that served the attempt.
	Model string

	InputUnits  int64
	OutputUnits int64
}

// InvokeFunc performs one attempt against the named provider.
type InvokeFunc func(ctx context.Context, provider string) (*Invocation, error)

// Result is the outcome of a gateway call.
type Result struct {
	// Value is the response payload, from cache or from a provider.
	Value []byte

	// Provider is the provider that served the call; empty on a cache hit.
	Provider string

	// CostUSD is the total cost metered for this call across all billed
	// attempts, including failed ones that consumed units.
	CostUSD float64

	// Cached reports whether the value came from the cache.
	Cached bool
}

// Options tunes gateway behavior.
type Options struct {
	// TTL maps operation names to cache lifetimes. Operations without an
	// entry use DefaultTTL.
	TTL map[string]time.Duration

	// DefaultTTL applies when TTL has no entry for an operation. Zero
	// means entries never expire.
	DefaultTTL time.Duration

	// Quota is enforced before each uncached call. A zero policy disables
	// enforcement.
	Quota model.QuotaPolicy

	// KeyIncludeProvider mixes the provider list into the cache key so
	// that different failover chains do not share entries.
	KeyIncludeProvider bool

	// AlertThresholdPct is the usage percentage at which warning alerts
	// begin. Zero uses the default of 80.
	AlertThresholdPct float64
}

const defaultAlertThresholdPct = 80.0

// Gateway coordinates the cache, retry engine, ledger, and notifiers.
type Gateway struct {
	cache     *cache.Store
	engine    *retry.Engine
	ledger    *ledger.Ledger
	notifiers []alerts.Notifier
	opts      Options
	logger    *slog.Logger
}

// New creates a gateway. All dependencies are required except notifiers,
// which may be empty.
func New(store *cache.Store, engine *retry.Engine, led *ledger.Ledger, notifiers []alerts.Notifier, opts Options, logger *slog.Logger) *Gateway {
	if opts.AlertThresholdPct <= 0 {
		opts.AlertThresholdPct = defaultAlertThresholdPct
	}
	return &Gateway{
		cache:     store,
		engine:    engine,
		ledger:    led,
		notifiers: notifiers,
		opts:      opts,
		logger:    logger,
	}
}

// Perform runs one governed call: cache lookup first, then quota check,
// then the retry engine with per-attempt metering, then a cache write.
// params must describe the request fully; identical params yield the same
// cache entry.
func (g *Gateway) Perform(ctx context.Context, operation string, params map[string]any, providers []string, invoke InvokeFunc) (*Result, error) {
	scope := ""
	if g.opts.KeyIncludeProvider {
		scope = strings.Join(providers, ",")
	}
	key := cache.Fingerprint(operation, scope, params)

	if value, ok := g.cache.Get(key); ok {
		g.logger.Debug("cache hit", "operation", operation, "fingerprint", key[:12])
		return &Result{Value: value, Cached: true}, nil
	}

	if g.opts.Quota.Configured() {
		if err := g.enforceQuota(ctx); err != nil {
			return nil, err
		}
	}

	var totalCost float64
	metered := func(ctx context.Context, provider string) (any, error) {
		inv, err := invoke(ctx, provider)
		if inv != nil && (inv.InputUnits > 0 || inv.OutputUnits > 0) {
			totalCost += g.record(ctx, provider, operation, inv)
		}
		if err != nil {
			return nil, err
		}
		return inv, nil
	}

	raw, provider, err := g.engine.Execute(ctx, operation, providers, metered)
	if err != nil {
		return nil, err
	}
	inv, ok := raw.(*Invocation)
	if !ok || inv == nil {
		return nil, fmt.Errorf("perform %s: provider %s returned no invocation", operation, provider)
	}

	if err := g.cache.Put(key, inv.Value, g.ttlFor(operation)); err != nil {
		g.logger.Warn("cache write failed", "operation", operation, "error", err)
	}

	g.notifyThresholds(ctx)

	return &Result{Value: inv.Value, Provider: provider, CostUSD: totalCost}, nil
}

// enforceQuota fails the call when a configured window is exhausted.
// Ledger read errors are logged and waved through so that a reporting
// outage cannot take down the request path.
func (g *Gateway) enforceQuota(ctx context.Context) error {
	status, err := g.ledger.CheckQuota(ctx, g.opts.Quota)
	if err != nil {
		g.logger.Warn("quota check unavailable, allowing call", "error", err)
		return nil
	}
	if !status.DailyWithinLimit {
		return fmt.Errorf("%w: daily spend $%.4f of $%.2f limit",
			ErrQuotaExceeded, status.DailyUsedUSD, status.DailyLimitUSD)
	}
	if !status.MonthlyWithinLimit {
		return fmt.Errorf("%w: monthly spend $%.4f of $%.2f limit",
			ErrQuotaExceeded, status.MonthlyUsedUSD, status.MonthlyLimitUSD)
	}
	return nil
}

// record meters one billed attempt. Metering failures never fail the
// call; the attempt already happened.
func (g *Gateway) record(ctx context.Context, provider, operation string, inv *Invocation) float64 {
	cost, err := g.ledger.Record(ctx, &model.UsageEvent{
		Provider:    provider,
		Operation:   operation,
		Model:       inv.Model,
		InputUnits:  inv.InputUnits,
		OutputUnits: inv.OutputUnits,
	})
	if err != nil {
		g.logger.Error("usage metering failed",
			"provider", provider,
			"operation", operation,
			"error", err,
		)
		return 0
	}
	return cost
}

// ttlFor resolves the cache lifetime for an operation.
func (g *Gateway) ttlFor(operation string) time.Duration {
	if ttl, ok := g.opts.TTL[operation]; ok {
		return ttl
	}
	return g.opts.DefaultTTL
}

// notifyThresholds sends at most one alert per window when usage crosses
// the warning, critical, or exceeded level.
func (g *Gateway) notifyThresholds(ctx context.Context) {
	if len(g.notifiers) == 0 || !g.opts.Quota.Configured() {
		return
	}

	status, err := g.ledger.CheckQuota(ctx, g.opts.Quota)
	if err != nil {
		g.logger.Warn("quota check for alerts failed", "error", err)
		return
	}

	g.maybeAlert(ctx, "daily", status.DailyUsedUSD, status.DailyLimitUSD)
	g.maybeAlert(ctx, "monthly", status.MonthlyUsedUSD, status.MonthlyLimitUSD)
}

func (g *Gateway) maybeAlert(ctx context.Context, window string, used, limit float64) {
	if limit <= 0 {
		return
	}
	pct := used / limit * 100

	var level alerts.AlertLevel
	switch {
	case pct >= 100:
		level = alerts.AlertExceeded
	case pct >= 95:
		level = alerts.AlertCritical
	case pct >= g.opts.AlertThresholdPct:
		level = alerts.AlertWarning
	default:
		return
	}

	alert := alerts.Alert{
		Level:        level,
		Window:       window,
		LimitUSD:     limit,
		UsedUSD:      used,
		ThresholdPct: g.opts.AlertThresholdPct,
		Message:      fmt.Sprintf("%s spend at %.1f%% of limit", window, pct),
	}

	for _, n := range g.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			g.logger.Error("alert delivery failed", "notifier", n.Name(), "error", err)
		}
	}
}

// UsageSummary aggregates ledger events in the window.
func (g *Gateway) UsageSummary(ctx context.Context, window model.Window) (*model.UsageSummary, error) {
	return g.ledger.Summarize(ctx, window)
}

// UsageEvents returns individual ledger events matching the filter.
func (g *Gateway) UsageEvents(ctx context.Context, filter model.ReportFilter) ([]model.UsageEvent, error) {
	return g.ledger.Query(ctx, filter)
}

// CheckQuota reports spend against the given policy without enforcing it.
func (g *Gateway) CheckQuota(ctx context.Context, policy model.QuotaPolicy) (*model.QuotaStatus, error) {
	return g.ledger.CheckQuota(ctx, policy)
}

// CacheStats returns hit, miss, and size counters for the cache.
func (g *Gateway) CacheStats() (model.CacheStats, error) {
	return g.cache.Stats()
}

// CleanupExpired removes expired cache entries and returns the count.
func (g *Gateway) CleanupExpired() (int64, error) {
	return g.cache.InvalidateExpired()
}

// PruneUsage removes ledger events older than the given age.
func (g *Gateway) PruneUsage(ctx context.Context, olderThan time.Duration) (int64, error) {
	return g.ledger.Prune(ctx, olderThan)
}
