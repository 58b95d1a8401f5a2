package aiclient

import (
	"context"
	"fmt"

	"github.com/yapay-ai/provider-sentinel/pkg/gateway"
	"github.com/yapay-ai/provider-sentinel/pkg/retry"
	"github.com/yapay-ai/provider-sentinel/pkg/tokenizer"
)

// Manager holds the configured generation clients and builds gateway
// invocations that dispatch on the provider name.
type Manager struct {
	generators map[string]Generator
}

// NewManager creates a manager over the given clients.
func NewManager(generators ...Generator) *Manager {
	m := &Manager{generators: make(map[string]Generator, len(generators))}
	for _, g := range generators {
		m.generators[g.Name()] = g
	}
	return m
}

// Providers lists the registered provider names.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.generators))
	for name := range m.generators {
		names = append(names, name)
	}
	return names
}

// Invoke builds the invocation closure for one generation request. When
// a provider's reply carries no usage counts, token quantities are
// estimated from the request and response text.
func (m *Manager) Invoke(req GenerateRequest) gateway.InvokeFunc {
	return func(ctx context.Context, provider string) (*gateway.Invocation, error) {
		gen, ok := m.generators[provider]
		if !ok {
			return nil, retry.Permanent(fmt.Errorf("no client configured for provider %q", provider))
		}

		resp, err := gen.Generate(ctx, req)
		if err != nil {
			return nil, err
		}

		inputTokens := resp.InputTokens
		if inputTokens == 0 {
			inputTokens = tokenizer.CountTokens(req.System+req.Prompt, provider)
		}
		outputTokens := resp.OutputTokens
		if outputTokens == 0 {
			outputTokens = tokenizer.CountTokens(resp.Text, provider)
		}

		return &gateway.Invocation{
			Value:       []byte(resp.Text),
			Model:       resp.Model,
			InputUnits:  inputTokens,
			OutputUnits: outputTokens,
		}, nil
	}
}
