// Package breaker implements a per-provider circuit breaker. Each breaker
// gates attempts against one provider: repeated failures open the circuit,
// and after a cooldown a single probe is admitted to detect recovery.
package breaker

import (
	"sync"
	"time"
)

// State is the circuit position for one provider.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes a breaker's failure tolerance.
type Config struct {
	// FailureThreshold is the consecutive failure count that opens the
	// circuit.
	FailureThreshold int

	// RecoveryTimeout is how long an open circuit rejects attempts before
	// admitting a probe.
	RecoveryTimeout time.Duration
}

// Defaults applied where Config fields are zero.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
)

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = DefaultRecoveryTimeout
	}
	return c
}

// Breaker is the state machine for a single provider. All transitions
// happen under one mutex; methods hold it only briefly so the breaker can
// sit on every request path without becoming a bottleneck.
type Breaker struct {
	mu       sync.Mutex
	cfg      Config
	now      func() time.Time
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func newBreaker(cfg Config, now func() time.Time) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), now: now}
}

// Allow reports whether an attempt may proceed. An open circuit rejects
// attempts until the recovery timeout elapses, then admits exactly one
// probe and moves to half-open; further callers are rejected until the
// probe resolves via RecordSuccess or RecordFailure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.RecoveryTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// RecordSuccess closes the circuit and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.probing = false
}

// RecordFailure registers a failed attempt. A half-open probe failure
// reopens the circuit immediately; in the closed state the circuit opens
// once consecutive failures reach the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = b.now()
		b.probing = false
		return
	}

	b.failures++
	if b.state == StateClosed && b.failures >= b.cfg.FailureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// State returns the current circuit position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
