package alerts

import "context"

// AlertLevel indicates the severity of a quota alert.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"  // Approaching the quota threshold
	AlertCritical AlertLevel = "critical" // At or near the quota limit
	AlertExceeded AlertLevel = "exceeded" // Quota limit exceeded
)

// Alert represents a quota threshold notification for one window.
type Alert struct {
	Level        AlertLevel `json:"level"`
	Window       string     `json:"window"` // "daily" or "monthly"
	LimitUSD     float64    `json:"limit_usd"`
	UsedUSD      float64    `json:"used_usd"`
	ThresholdPct float64    `json:"threshold_pct"`
	Message      string     `json:"message"`
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
