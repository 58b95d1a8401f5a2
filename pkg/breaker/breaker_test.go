package breaker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/provider-sentinel/pkg/breaker"
)

// fakeClock is a manually advanced clock for breaker timing tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestRegistry(cfg breaker.Config) (*breaker.Registry, *fakeClock) {
	clock := newFakeClock()
	return breaker.NewRegistryWithClock(cfg, clock.Now), clock
}

func TestBreaker_OpensAtFailureThreshold(t *testing.T) {
	reg, _ := newTestRegistry(breaker.Config{FailureThreshold: 5, RecoveryTimeout: time.Minute})
	b := reg.Get("claude")

	for i := 0; i < 4; i++ {
		require.True(t, b.Allow())
		b.RecordFailure()
		assert.Equal(t, breaker.StateClosed, b.State())
	}

	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, breaker.StateOpen, b.State())

	// A sixth attempt is rejected without any call being made.
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	reg, _ := newTestRegistry(breaker.Config{FailureThreshold: 3, RecoveryTimeout: time.Minute})
	b := reg.Get("kimi")

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, 0, b.Failures())

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, breaker.StateClosed, b.State())
}

func TestBreaker_HalfOpenAfterRecoveryTimeout(t *testing.T) {
	reg, clock := newTestRegistry(breaker.Config{FailureThreshold: 2, RecoveryTimeout: time.Minute})
	b := reg.Get("qwen")

	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, breaker.StateOpen, b.State())
	assert.False(t, b.Allow())

	clock.Advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(2 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, breaker.StateHalfOpen, b.State())

	// Only one probe is admitted while it is in flight.
	assert.False(t, b.Allow())

	b.RecordSuccess()
	assert.Equal(t, breaker.StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
	assert.True(t, b.Allow())
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	reg, clock := newTestRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})
	b := reg.Get("claude")

	b.RecordFailure()
	require.Equal(t, breaker.StateOpen, b.State())

	clock.Advance(61 * time.Second)
	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, breaker.StateOpen, b.State())

	// The cooldown restarts from the probe failure.
	assert.False(t, b.Allow())
	clock.Advance(61 * time.Second)
	assert.True(t, b.Allow())
}

func TestBreaker_SingleProbeUnderConcurrency(t *testing.T) {
	reg, clock := newTestRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Second})
	b := reg.Get("claude")

	b.RecordFailure()
	clock.Advance(2 * time.Second)

	var admitted int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Allow() {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), admitted, "exactly one half-open probe admitted")
}

func TestRegistry_IsolatesProviders(t *testing.T) {
	reg, _ := newTestRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	reg.Get("claude").RecordFailure()
	assert.Equal(t, breaker.StateOpen, reg.Get("claude").State())
	assert.Equal(t, breaker.StateClosed, reg.Get("kimi").State())
	assert.True(t, reg.Get("kimi").Allow())
}

func TestRegistry_PerProviderConfig(t *testing.T) {
	reg, _ := newTestRegistry(breaker.Config{FailureThreshold: 5, RecoveryTimeout: time.Minute})
	reg.Configure("flaky", breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	reg.Get("flaky").RecordFailure()
	assert.Equal(t, breaker.StateOpen, reg.Get("flaky").State())

	reg.Get("stable").RecordFailure()
	assert.Equal(t, breaker.StateClosed, reg.Get("stable").State())
}

func TestRegistry_States(t *testing.T) {
	reg, _ := newTestRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	reg.Get("a")
	reg.Get("b").RecordFailure()

	states := reg.States()
	assert.Equal(t, breaker.StateClosed, states["a"])
	assert.Equal(t, breaker.StateOpen, states["b"])
}
