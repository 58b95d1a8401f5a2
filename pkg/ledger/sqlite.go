package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yapay-ai/provider-sentinel/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL for concurrent reads; busy_timeout is per-connection, so both
	// pragmas go in the DSN to cover every pool connection.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) AppendEvent(ctx context.Context, event *model.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_events (id, provider, operation, model, input_units, output_units, cost_usd, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Provider, event.Operation, event.Model,
		event.InputUnits, event.OutputUnits, event.CostUSD, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert usage event: %w", err)
	}
	return nil
}

func (s *SQLite) QueryEvents(ctx context.Context, filter model.ReportFilter) ([]model.UsageEvent, error) {
	query := "SELECT id, provider, operation, model, input_units, output_units, cost_usd, timestamp FROM usage_events"
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage events: %w", err)
	}
	defer rows.Close()

	var events []model.UsageEvent
	for rows.Next() {
		var e model.UsageEvent
		if err := rows.Scan(&e.ID, &e.Provider, &e.Operation, &e.Model,
			&e.InputUnits, &e.OutputUnits, &e.CostUSD, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan usage event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLite) AggregateEvents(ctx context.Context, filter model.ReportFilter) (*model.UsageSummary, error) {
	query := `SELECT
		COALESCE(SUM(cost_usd), 0),
		COALESCE(SUM(input_units + output_units), 0),
		COUNT(*)
	FROM usage_events`
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}

	summary := &model.UsageSummary{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&summary.TotalCostUSD,
		&summary.TotalUnits,
		&summary.EventCount,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage: %w", err)
	}

	summary.ByProvider, err = s.aggregateByField(ctx, "provider", where, args)
	if err != nil {
		return nil, err
	}

	summary.ByOperation, err = s.aggregateByField(ctx, "operation", where, args)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

func (s *SQLite) aggregateByField(ctx context.Context, field, where string, args []any) (map[string]model.Bucket, error) {
	query := fmt.Sprintf(
		"SELECT %s, COALESCE(SUM(cost_usd), 0), COALESCE(SUM(input_units + output_units), 0), COUNT(*) FROM usage_events",
		field)
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" GROUP BY %s", field)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", field, err)
	}
	defer rows.Close()

	result := make(map[string]model.Bucket)
	for rows.Next() {
		var name string
		var bucket model.Bucket
		if err := rows.Scan(&name, &bucket.CostUSD, &bucket.Units, &bucket.Events); err != nil {
			return nil, fmt.Errorf("scan %s aggregate: %w", field, err)
		}
		result[name] = bucket
	}
	return result, rows.Err()
}

func (s *SQLite) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM usage_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune usage events: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned events: %w", err)
	}
	return removed, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildWhereClause constructs a SQL WHERE clause from a ReportFilter.
func buildWhereClause(filter model.ReportFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Model != "" {
		conditions = append(conditions, "model = ?")
		args = append(args, filter.Model)
	}
	if !filter.StartTime.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, filter.EndTime)
	}

	return strings.Join(conditions, " AND "), args
}
