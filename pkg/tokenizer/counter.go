// Package tokenizer estimates token quantities for billing when a provider
// response does not report usage counts.
package tokenizer

import (
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// openAICompatible lists providers whose APIs follow the OpenAI chat
// format and tokenize comparably to cl100k_base.
var openAICompatible = map[string]bool{
	"kimi": true,
	"qwen": true,
}

// CountTokens returns an estimated token count for the given text. For
// OpenAI-compatible providers it uses tiktoken; for others, or when the
// encoding is unavailable, it falls back to character-based estimation.
// Quantities drive billing, so a count is always produced.
func CountTokens(text, provider string) int64 {
	if openAICompatible[provider] {
		if n, ok := countTiktoken(text); ok {
			return n
		}
	}
	return EstimateTokens(text)
}

// countTiktoken tokenizes with the cl100k_base encoding.
func countTiktoken(text string) (int64, bool) {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return 0, false
	}

	ids, _, err := enc.Encode(text)
	if err != nil {
		return 0, false
	}

	return int64(len(ids)), true
}

// EstimateTokens uses character-based estimation (4 chars per token on
// average), the fallback for providers without a known tokenizer.
func EstimateTokens(text string) int64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0
	}
	tokens := (len(text) + 3) / 4 // ceiling division by 4
	return int64(tokens)
}
