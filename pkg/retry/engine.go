// Package retry drives attempts against an ordered list of providers:
// exponential backoff between retries on the same provider, failover to
// the next provider on exhaustion, and a circuit-breaker gate before every
// attempt. The engine never knows transport details; callers supply an
// invocation closure per execution.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yapay-ai/provider-sentinel/pkg/breaker"
)

// Config tunes the retry schedule.
type Config struct {
	// MaxAttemptsPerProvider is how many times one provider is tried
	// before failing over.
	MaxAttemptsPerProvider int

	// BaseDelay is the first backoff delay; each retry doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
}

// Defaults applied where Config fields are zero.
const (
	DefaultMaxAttemptsPerProvider = 2
	DefaultBaseDelay              = time.Second
	DefaultMaxDelay               = 60 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxAttemptsPerProvider <= 0 {
		c.MaxAttemptsPerProvider = DefaultMaxAttemptsPerProvider
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	return c
}

// InvokeFunc performs one attempt against the named provider.
type InvokeFunc func(ctx context.Context, provider string) (any, error)

// Engine executes operations with retries and provider failover.
type Engine struct {
	cfg      Config
	breakers *breaker.Registry
	logger   *slog.Logger
}

// NewEngine creates an engine gated by the given breaker registry.
func NewEngine(cfg Config, breakers *breaker.Registry, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg.withDefaults(), breakers: breakers, logger: logger}
}

// Execute tries each provider in order, up to the configured attempts per
// provider, and returns the first successful result along with the
// provider that produced it. Provider order is caller-supplied and never
// reordered. When every provider fails or is skipped, the returned error
// is an *ExhaustedError listing each provider's outcome.
func (e *Engine) Execute(ctx context.Context, operation string, providers []string, invoke InvokeFunc) (any, string, error) {
	if len(providers) == 0 {
		return nil, "", fmt.Errorf("execute %s: no providers given", operation)
	}

	var failures []ProviderFailure

	for _, provider := range providers {
		br := e.breakers.Get(provider)
		failure := ProviderFailure{Provider: provider}

		for attempt := 0; attempt < e.cfg.MaxAttemptsPerProvider; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, "", fmt.Errorf("execute %s: %w", operation, err)
			}

			if !br.Allow() {
				// Not a call failure: the provider was never tried.
				if attempt == 0 {
					failure.Skipped = true
				}
				e.logger.Warn("circuit open, skipping provider",
					"operation", operation,
					"provider", provider,
				)
				break
			}

			result, err := invoke(ctx, provider)
			if err == nil {
				br.RecordSuccess()
				if attempt > 0 || len(failures) > 0 {
					e.logger.Info("recovered after retries",
						"operation", operation,
						"provider", provider,
						"attempt", attempt+1,
					)
				}
				return result, provider, nil
			}

			br.RecordFailure()
			failure.Attempts++
			failure.LastErr = err

			if IsPermanent(err) {
				e.logger.Warn("permanent failure, failing over",
					"operation", operation,
					"provider", provider,
					"error", err,
				)
				break
			}

			e.logger.Warn("attempt failed",
				"operation", operation,
				"provider", provider,
				"attempt", attempt+1,
				"max_attempts", e.cfg.MaxAttemptsPerProvider,
				"error", err,
			)

			// Backoff only between retries on the same provider; failover
			// moves on without delay.
			if attempt < e.cfg.MaxAttemptsPerProvider-1 {
				if err := sleep(ctx, e.backoff(attempt)); err != nil {
					return nil, "", fmt.Errorf("execute %s: %w", operation, err)
				}
			}
		}

		failures = append(failures, failure)
	}

	return nil, "", &ExhaustedError{Operation: operation, Failures: failures}
}

// backoff returns base_delay * 2^attempt capped at the maximum delay.
func (e *Engine) backoff(attempt int) time.Duration {
	delay := e.cfg.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= e.cfg.MaxDelay {
			return e.cfg.MaxDelay
		}
	}
	if delay > e.cfg.MaxDelay {
		return e.cfg.MaxDelay
	}
	return delay
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
