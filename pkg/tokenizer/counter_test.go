package tokenizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yapay-ai/provider-sentinel/pkg/tokenizer"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int64
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t  ", 0},
		{"four chars one token", "abcd", 1},
		{"five chars rounds up", "abcde", 2},
		{"sentence", "The quick brown fox jumps over the lazy dog", 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenizer.EstimateTokens(tt.text))
		})
	}
}

func TestCountTokens_OpenAICompatible(t *testing.T) {
	count := tokenizer.CountTokens("Hello, world! How are you today?", "kimi")
	assert.Greater(t, count, int64(0))
	// Tiktoken counts should land well under one token per character.
	assert.Less(t, count, int64(32))
}

func TestCountTokens_FallbackEstimation(t *testing.T) {
	assert.Equal(t, int64(2), tokenizer.CountTokens("abcdefgh", "claude"))
}

func TestCountTokens_UnknownProviderUsesEstimate(t *testing.T) {
	count := tokenizer.CountTokens("some text here", "mystery")
	assert.Equal(t, tokenizer.EstimateTokens("some text here"), count)
}

func TestCountTokens_NeverZeroForText(t *testing.T) {
	// Billing depends on a quantity coming back for every provider.
	for _, provider := range []string{"claude", "kimi", "qwen", "unknown"} {
		assert.Greater(t, tokenizer.CountTokens("non-empty text", provider), int64(0), provider)
	}
}
