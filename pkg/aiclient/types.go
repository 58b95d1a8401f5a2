// Package aiclient holds the HTTP clients for the upstream text
// generation providers and adapts them to the gateway's invocation shape.
package aiclient

import "context"

// GenerateRequest is a provider-neutral text generation request.
type GenerateRequest struct {
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// GenerateResponse is the normalized provider reply.
type GenerateResponse struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// Generator is a text generation provider client.
type Generator interface {
	// Name returns the provider identifier used in rate tables and
	// failover chains.
	Name() string

	// Generate performs one completion call.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}
