// Package ledger records every completed remote attempt as an append-only
// usage event, derives cost from provider rate tables, and answers
// windowed aggregation and advisory quota queries.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yapay-ai/provider-sentinel/pkg/model"
	"github.com/yapay-ai/provider-sentinel/pkg/pricing"
)

// Ledger is the main entry point for metering and querying provider usage.
type Ledger struct {
	storage Storage
	rates   *pricing.Registry
	logger  *slog.Logger
}

// New creates a ledger with the given dependencies.
func New(storage Storage, rates *pricing.Registry, logger *slog.Logger) *Ledger {
	return &Ledger{storage: storage, rates: rates, logger: logger}
}

// Record derives the event's cost from its provider's rate table, appends
// it, and returns the computed cost. A preset CostUSD is kept as-is.
func (l *Ledger) Record(ctx context.Context, event *model.UsageEvent) (float64, error) {
	if event.CostUSD == 0 {
		cost, err := l.deriveCost(event)
		if err != nil {
			return 0, err
		}
		event.CostUSD = cost
	}

	if err := l.storage.AppendEvent(ctx, event); err != nil {
		return 0, fmt.Errorf("append usage event: %w", err)
	}

	l.logger.Info("usage recorded",
		"provider", event.Provider,
		"operation", event.Operation,
		"model", event.Model,
		"input_units", event.InputUnits,
		"output_units", event.OutputUnits,
		"cost_usd", event.CostUSD,
	)

	return event.CostUSD, nil
}

func (l *Ledger) deriveCost(event *model.UsageEvent) (float64, error) {
	p, err := l.rates.Get(event.Provider)
	if err != nil {
		return 0, fmt.Errorf("derive cost: %w", err)
	}

	inputPrice, err := p.PricePerUnit(event.Model, pricing.UnitInput)
	if err != nil {
		return 0, fmt.Errorf("input rate: %w", err)
	}
	outputPrice, err := p.PricePerUnit(event.Model, pricing.UnitOutput)
	if err != nil {
		return 0, fmt.Errorf("output rate: %w", err)
	}

	return float64(event.InputUnits)*inputPrice + float64(event.OutputUnits)*outputPrice, nil
}

// Summarize aggregates events whose timestamp falls in the window.
func (l *Ledger) Summarize(ctx context.Context, window model.Window) (*model.UsageSummary, error) {
	return l.storage.AggregateEvents(ctx, model.ReportFilter{
		StartTime: window.Start,
		EndTime:   window.End,
	})
}

// Query returns individual usage events for the given filter.
func (l *Ledger) Query(ctx context.Context, filter model.ReportFilter) ([]model.UsageEvent, error) {
	return l.storage.QueryEvents(ctx, filter)
}

// CheckQuota evaluates the policy against current daily and monthly
// spend. Pure read: the ledger never refuses an operation itself.
func (l *Ledger) CheckQuota(ctx context.Context, policy model.QuotaPolicy) (*model.QuotaStatus, error) {
	daily, err := l.Summarize(ctx, model.PeriodWindow(model.PeriodDaily))
	if err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}
	monthly, err := l.Summarize(ctx, model.PeriodWindow(model.PeriodMonthly))
	if err != nil {
		return nil, fmt.Errorf("monthly usage: %w", err)
	}

	status := &model.QuotaStatus{
		DailyUsedUSD:    daily.TotalCostUSD,
		DailyLimitUSD:   policy.DailyLimitUSD,
		MonthlyUsedUSD:  monthly.TotalCostUSD,
		MonthlyLimitUSD: policy.MonthlyLimitUSD,
	}

	status.DailyWithinLimit, status.DailyRemainingUSD = evaluateLimit(daily.TotalCostUSD, policy.DailyLimitUSD)
	status.MonthlyWithinLimit, status.MonthlyRemainingUSD = evaluateLimit(monthly.TotalCostUSD, policy.MonthlyLimitUSD)

	return status, nil
}

// evaluateLimit treats a non-positive limit as unlimited.
func evaluateLimit(used, limit float64) (within bool, remaining float64) {
	if limit <= 0 {
		return true, 0
	}
	remaining = limit - used
	if remaining < 0 {
		remaining = 0
	}
	return used < limit, remaining
}

// Prune removes events older than the given age and returns how many were
// removed.
func (l *Ledger) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	removed, err := l.storage.PruneEvents(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		l.logger.Info("pruned usage events", "removed", removed, "older_than", olderThan.String())
	}
	return removed, nil
}
