package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yapay-ai/provider-sentinel/pkg/cache"
)

func TestFingerprint_Deterministic(t *testing.T) {
	params := map[string]any{"prompt": "hello", "max_tokens": 100}

	a := cache.Fingerprint("generate", "", params)
	b := cache.Fingerprint("generate", "", params)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	// Maps with the same pairs hash identically regardless of insertion
	// order because JSON encoding sorts keys.
	a := cache.Fingerprint("generate", "", map[string]any{"x": 1, "y": 2, "z": 3})
	b := cache.Fingerprint("generate", "", map[string]any{"z": 3, "y": 2, "x": 1})
	assert.Equal(t, a, b)
}

func TestFingerprint_DistinguishesOperations(t *testing.T) {
	params := map[string]any{"query": "diabetes"}

	a := cache.Fingerprint("search", "", params)
	b := cache.Fingerprint("generate", "", params)
	assert.NotEqual(t, a, b)
}

func TestFingerprint_DistinguishesParams(t *testing.T) {
	a := cache.Fingerprint("generate", "", map[string]any{"prompt": "one"})
	b := cache.Fingerprint("generate", "", map[string]any{"prompt": "two"})
	assert.NotEqual(t, a, b)
}

func TestFingerprint_Scope(t *testing.T) {
	params := map[string]any{"prompt": "hello"}

	unscoped := cache.Fingerprint("generate", "", params)
	claude := cache.Fingerprint("generate", "claude", params)
	kimi := cache.Fingerprint("generate", "kimi", params)

	assert.NotEqual(t, unscoped, claude)
	assert.NotEqual(t, claude, kimi)
}
