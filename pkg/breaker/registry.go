package breaker

import (
	"sync"
	"time"
)

// Registry holds one breaker per provider identity, created lazily with a
// shared default config. Breaker state is process-wide: cancelling one
// request never resets a provider's circuit.
type Registry struct {
	mu        sync.Mutex
	defaults  Config
	overrides map[string]Config
	breakers  map[string]*Breaker
	now       func() time.Time
}

// NewRegistry creates a registry applying cfg to every provider.
func NewRegistry(cfg Config) *Registry {
	return NewRegistryWithClock(cfg, func() time.Time { return time.Now().UTC() })
}

// NewRegistryWithClock creates a registry with an injected clock.
func NewRegistryWithClock(cfg Config, now func() time.Time) *Registry {
	return &Registry{
		defaults:  cfg.withDefaults(),
		overrides: make(map[string]Config),
		breakers:  make(map[string]*Breaker),
		now:       now,
	}
}

// Configure sets a per-provider config, replacing any existing breaker for
// that provider.
func (r *Registry) Configure(provider string, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[provider] = cfg.withDefaults()
	delete(r.breakers, provider)
}

// Get returns the breaker for a provider, creating it on first use.
func (r *Registry) Get(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[provider]
	if !ok {
		cfg := r.defaults
		if override, exists := r.overrides[provider]; exists {
			cfg = override
		}
		b = newBreaker(cfg, r.now)
		r.breakers[provider] = b
	}
	return b
}

// States returns a snapshot of every known provider's circuit position.
func (r *Registry) States() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]State, len(r.breakers))
	for provider, b := range r.breakers {
		states[provider] = b.State()
	}
	return states
}
