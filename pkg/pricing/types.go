package pricing

// UnitKind distinguishes input from output units for rate lookups.
type UnitKind int

const (
	UnitInput  UnitKind = iota // Units consumed by the request (prompt tokens, queries)
	UnitOutput                 // Units produced by the response (completion tokens)
)

// ModelRate contains per-model rates in USD per million units.
type ModelRate struct {
	Model            string  `yaml:"model"`
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// RateTable holds YAML-loaded rate data for one provider.
type RateTable struct {
	Provider string      `yaml:"provider"`
	Updated  string      `yaml:"updated"`
	Models   []ModelRate `yaml:"models"`
}

// Provider exposes rate lookups for a single upstream provider.
type Provider interface {
	// Name returns the provider identifier (e.g., "claude", "kimi").
	Name() string

	// Models returns all known models with rates.
	Models() []ModelRate

	// PricePerUnit returns the cost of a single unit of the given kind for
	// the model.
	PricePerUnit(model string, kind UnitKind) (float64, error)

	// SupportsModel reports whether this provider has rates for the model.
	SupportsModel(model string) bool
}
