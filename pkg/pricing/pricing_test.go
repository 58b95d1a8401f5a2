package pricing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/provider-sentinel/pkg/pricing"
)

const claudeYAML = `provider: claude
updated: "2026-08-01"
models:
  - model: claude-3-5-sonnet-20241022
    input_per_million: 3.00
    output_per_million: 15.00
  - model: claude-3-5-haiku-20241022
    input_per_million: 0.80
    output_per_million: 4.00
`

func TestNewTableFromBytes(t *testing.T) {
	table, err := pricing.NewTableFromBytes([]byte(claudeYAML))
	require.NoError(t, err)

	assert.Equal(t, "claude", table.Name())
	assert.Len(t, table.Models(), 2)
	assert.True(t, table.SupportsModel("claude-3-5-sonnet-20241022"))
	assert.False(t, table.SupportsModel("gpt-4o"))
}

func TestTable_PricePerUnit(t *testing.T) {
	table, err := pricing.NewTableFromBytes([]byte(claudeYAML))
	require.NoError(t, err)

	in, err := table.PricePerUnit("claude-3-5-sonnet-20241022", pricing.UnitInput)
	require.NoError(t, err)
	assert.InDelta(t, 0.000003, in, 1e-12)

	out, err := table.PricePerUnit("claude-3-5-sonnet-20241022", pricing.UnitOutput)
	require.NoError(t, err)
	assert.InDelta(t, 0.000015, out, 1e-12)
}

func TestTable_UnknownModelFallsBackToFirst(t *testing.T) {
	table, err := pricing.NewTableFromBytes([]byte(claudeYAML))
	require.NoError(t, err)

	in, err := table.PricePerUnit("claude-unreleased", pricing.UnitInput)
	require.NoError(t, err)
	assert.InDelta(t, 0.000003, in, 1e-12)
}

func TestNewTable_Validation(t *testing.T) {
	_, err := pricing.NewTableFromBytes([]byte("models:\n  - model: x\n"))
	assert.Error(t, err, "missing provider name")

	_, err = pricing.NewTableFromBytes([]byte("provider: empty\n"))
	assert.Error(t, err, "no models")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claude.yaml"), []byte(claudeYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kimi.yaml"), []byte(
		"provider: kimi\nmodels:\n  - model: moonshot-v1-8k\n    input_per_million: 0.20\n    output_per_million: 0.20\n"), 0o644))

	tables, err := pricing.LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, tables, 2)
}

func TestRegistry(t *testing.T) {
	registry := pricing.NewRegistry()

	table, err := pricing.NewTableFromBytes([]byte(claudeYAML))
	require.NoError(t, err)
	require.NoError(t, registry.Register(table))

	assert.Error(t, registry.Register(table), "duplicate registration")

	got, err := registry.Get("claude")
	require.NoError(t, err)
	assert.Equal(t, "claude", got.Name())

	_, err = registry.Get("unknown")
	assert.Error(t, err)

	assert.Equal(t, []string{"claude"}, registry.List())
}
