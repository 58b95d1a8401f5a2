package model

import "time"

// UsageEvent represents a single metered provider call. Events are
// append-only: once recorded they are never mutated.
type UsageEvent struct {
	ID          string    `json:"id" db:"id"`
	Provider    string    `json:"provider" db:"provider"`
	Operation   string    `json:"operation" db:"operation"`
	Model       string    `json:"model" db:"model"`
	InputUnits  int64     `json:"input_units" db:"input_units"`
	OutputUnits int64     `json:"output_units" db:"output_units"`
	CostUSD     float64   `json:"cost_usd" db:"cost_usd"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
}

// Quantity returns the total metered units for the event.
func (e *UsageEvent) Quantity() int64 {
	return e.InputUnits + e.OutputUnits
}

// ReportFilter controls which usage events are included in queries and
// aggregations.
type ReportFilter struct {
	Provider  string    `json:"provider,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Model     string    `json:"model,omitempty"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// Bucket holds aggregated usage for one grouping key.
type Bucket struct {
	CostUSD float64 `json:"cost_usd"`
	Units   int64   `json:"units"`
	Events  int64   `json:"events"`
}

// UsageSummary holds aggregated usage statistics for a time window.
type UsageSummary struct {
	TotalCostUSD float64           `json:"total_cost_usd"`
	TotalUnits   int64             `json:"total_units"`
	EventCount   int64             `json:"event_count"`
	ByProvider   map[string]Bucket `json:"by_provider,omitempty"`
	ByOperation  map[string]Bucket `json:"by_operation,omitempty"`
}

// QuotaPolicy defines spending ceilings per time window. A non-positive
// limit means that window is unlimited.
type QuotaPolicy struct {
	DailyLimitUSD   float64 `json:"daily_limit_usd"`
	MonthlyLimitUSD float64 `json:"monthly_limit_usd"`
}

// Configured reports whether the policy enforces at least one limit.
func (p QuotaPolicy) Configured() bool {
	return p.DailyLimitUSD > 0 || p.MonthlyLimitUSD > 0
}

// QuotaStatus is the result of an advisory quota check. The ledger never
// blocks a request itself; callers decide what to do with this.
type QuotaStatus struct {
	DailyUsedUSD        float64 `json:"daily_used_usd"`
	DailyLimitUSD       float64 `json:"daily_limit_usd"`
	DailyRemainingUSD   float64 `json:"daily_remaining_usd"`
	DailyWithinLimit    bool    `json:"daily_within_limit"`
	MonthlyUsedUSD      float64 `json:"monthly_used_usd"`
	MonthlyLimitUSD     float64 `json:"monthly_limit_usd"`
	MonthlyRemainingUSD float64 `json:"monthly_remaining_usd"`
	MonthlyWithinLimit  bool    `json:"monthly_within_limit"`
}

// WithinLimits reports whether both windows are under their limits.
func (s *QuotaStatus) WithinLimits() bool {
	return s.DailyWithinLimit && s.MonthlyWithinLimit
}

// CacheStats holds cache size and effectiveness counters.
type CacheStats struct {
	EntryCount     int64 `json:"entry_count"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
	HitCount       int64 `json:"hit_count"`
	MissCount      int64 `json:"miss_count"`
}

// Period identifies a standard reporting window.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodWindow returns the current calendar window (UTC) for the period.
func PeriodWindow(period Period) Window {
	now := time.Now().UTC()
	switch period {
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: start.AddDate(0, 1, 0)}
	default: // daily
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: start.AddDate(0, 0, 1)}
	}
}
