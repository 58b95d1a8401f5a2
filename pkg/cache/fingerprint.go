package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint returns a deterministic hex digest identifying a request.
// Parameters are canonicalized by JSON encoding, which sorts map keys, so
// logically identical requests with differently ordered parameters produce
// the same fingerprint. An optional scope (e.g. a provider list) can be
// folded into the key to cache per-provider responses separately.
func Fingerprint(operation, scope string, params map[string]any) string {
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	if scope != "" {
		h.Write([]byte(scope))
		h.Write([]byte{0})
	}
	data, _ := json.Marshal(params)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
