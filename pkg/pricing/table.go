package pricing

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Table implements Provider from a YAML rate table. When a model is not
// listed, the table's first model is used as a fallback rate so unknown
// model variants still get billed rather than dropped.
type Table struct {
	table  *RateTable
	models map[string]ModelRate
}

// NewTable creates a provider from a parsed rate table.
func NewTable(table *RateTable) (*Table, error) {
	if table.Provider == "" {
		return nil, fmt.Errorf("rate table: missing provider name")
	}
	if len(table.Models) == 0 {
		return nil, fmt.Errorf("rate table %s: no models defined", table.Provider)
	}

	m := make(map[string]ModelRate, len(table.Models))
	for _, rate := range table.Models {
		m[rate.Model] = rate
	}
	return &Table{table: table, models: m}, nil
}

// NewTableFromFile loads a YAML rate table from disk.
func NewTableFromFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate table %s: %w", path, err)
	}
	return NewTableFromBytes(data)
}

// NewTableFromBytes parses a YAML rate table from raw bytes.
func NewTableFromBytes(data []byte) (*Table, error) {
	var table RateTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse rate table: %w", err)
	}
	return NewTable(&table)
}

func (t *Table) Name() string { return t.table.Provider }

func (t *Table) Models() []ModelRate { return t.table.Models }

func (t *Table) PricePerUnit(model string, kind UnitKind) (float64, error) {
	rate, ok := t.models[model]
	if !ok {
		rate = t.table.Models[0]
	}

	switch kind {
	case UnitInput:
		return rate.InputPerMillion / 1_000_000, nil
	case UnitOutput:
		return rate.OutputPerMillion / 1_000_000, nil
	default:
		return 0, fmt.Errorf("%s: unknown unit kind %d", t.table.Provider, kind)
	}
}

func (t *Table) SupportsModel(model string) bool {
	_, ok := t.models[model]
	return ok
}

// LoadDir loads every *.yaml rate table in a directory.
func LoadDir(dir string) ([]*Table, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan rate tables: %w", err)
	}

	var tables []*Table
	for _, path := range paths {
		table, err := NewTableFromFile(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}
