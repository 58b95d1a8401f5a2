package ledger

import (
	"context"
	"time"

	"github.com/yapay-ai/provider-sentinel/pkg/model"
)

// Storage defines the persistence layer for usage events. Events are an
// append-only log: implementations never update them in place.
type Storage interface {
	// AppendEvent persists a single usage event atomically.
	AppendEvent(ctx context.Context, event *model.UsageEvent) error

	// QueryEvents retrieves usage events matching the given filter.
	QueryEvents(ctx context.Context, filter model.ReportFilter) ([]model.UsageEvent, error)

	// AggregateEvents returns totals and per-provider/per-operation
	// breakdowns for a time range.
	AggregateEvents(ctx context.Context, filter model.ReportFilter) (*model.UsageSummary, error)

	// PruneEvents removes events older than the cutoff and returns how
	// many were removed. Irreversible.
	PruneEvents(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases resources.
	Close() error
}
