package retry_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/provider-sentinel/pkg/breaker"
	"github.com/yapay-ai/provider-sentinel/pkg/retry"
)

func newTestEngine(cfg retry.Config) (*retry.Engine, *breaker.Registry) {
	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 100, RecoveryTimeout: time.Minute})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return retry.NewEngine(cfg, breakers, logger), breakers
}

func fastConfig() retry.Config {
	return retry.Config{
		MaxAttemptsPerProvider: 2,
		BaseDelay:              time.Millisecond,
		MaxDelay:               5 * time.Millisecond,
	}
}

func TestEngine_FirstProviderSucceeds(t *testing.T) {
	engine, _ := newTestEngine(fastConfig())

	calls := 0
	result, provider, err := engine.Execute(context.Background(), "generate", []string{"claude", "kimi"},
		func(_ context.Context, provider string) (any, error) {
			calls++
			return "ok from " + provider, nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok from claude", result)
	assert.Equal(t, "claude", provider)
	assert.Equal(t, 1, calls)
}

func TestEngine_FailoverAfterRetries(t *testing.T) {
	engine, _ := newTestEngine(fastConfig())

	var calls []string
	result, provider, err := engine.Execute(context.Background(), "generate", []string{"a", "b"},
		func(_ context.Context, provider string) (any, error) {
			calls = append(calls, provider)
			if provider == "a" {
				return nil, errors.New("a is down")
			}
			return "b result", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "b result", result)
	assert.Equal(t, "b", provider)
	// Two attempts on a, one on b: exactly three invocations.
	assert.Equal(t, []string{"a", "a", "b"}, calls)
}

func TestEngine_AllProvidersExhausted(t *testing.T) {
	engine, _ := newTestEngine(fastConfig())

	_, _, err := engine.Execute(context.Background(), "generate", []string{"a", "b"},
		func(_ context.Context, provider string) (any, error) {
			return nil, errors.New(provider + " failed")
		})

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "generate", exhausted.Operation)
	require.Len(t, exhausted.Failures, 2)

	assert.Equal(t, "a", exhausted.Failures[0].Provider)
	assert.Equal(t, 2, exhausted.Failures[0].Attempts)
	assert.EqualError(t, exhausted.Failures[0].LastErr, "a failed")
	assert.False(t, exhausted.Failures[0].Skipped)

	assert.Equal(t, "b", exhausted.Failures[1].Provider)
	assert.Equal(t, 2, exhausted.Failures[1].Attempts)
	assert.Contains(t, err.Error(), "all providers exhausted for generate")
}

func TestEngine_PermanentErrorSkipsRetries(t *testing.T) {
	engine, _ := newTestEngine(fastConfig())

	var calls []string
	result, _, err := engine.Execute(context.Background(), "generate", []string{"a", "b"},
		func(_ context.Context, provider string) (any, error) {
			calls = append(calls, provider)
			if provider == "a" {
				return nil, retry.Permanent(errors.New("invalid request"))
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	// No second attempt on a: a malformed request won't get better.
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestEngine_SkipsProviderWithOpenCircuit(t *testing.T) {
	engine, breakers := newTestEngine(fastConfig())
	breakers.Configure("a", breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	breakers.Get("a").RecordFailure()

	var calls []string
	result, provider, err := engine.Execute(context.Background(), "generate", []string{"a", "b"},
		func(_ context.Context, provider string) (any, error) {
			calls = append(calls, provider)
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "b", provider)
	assert.Equal(t, []string{"b"}, calls, "open circuit must be skipped without invoking")
}

func TestEngine_SkippedProviderMarkedInAggregate(t *testing.T) {
	engine, breakers := newTestEngine(fastConfig())
	breakers.Configure("a", breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	breakers.Get("a").RecordFailure()

	_, _, err := engine.Execute(context.Background(), "generate", []string{"a", "b"},
		func(_ context.Context, _ string) (any, error) {
			return nil, errors.New("down")
		})

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Failures, 2)
	assert.True(t, exhausted.Failures[0].Skipped)
	assert.Equal(t, 0, exhausted.Failures[0].Attempts)
	assert.False(t, exhausted.Failures[1].Skipped)
	assert.Contains(t, err.Error(), "a: skipped (circuit open)")
}

func TestEngine_FailuresOpenCircuit(t *testing.T) {
	engine, breakers := newTestEngine(fastConfig())
	breakers.Configure("a", breaker.Config{FailureThreshold: 2, RecoveryTimeout: time.Hour})

	_, _, err := engine.Execute(context.Background(), "generate", []string{"a"},
		func(_ context.Context, _ string) (any, error) {
			return nil, errors.New("down")
		})
	require.Error(t, err)

	assert.Equal(t, breaker.StateOpen, breakers.Get("a").State())
}

func TestEngine_ContextCancelDuringBackoff(t *testing.T) {
	engine, _ := newTestEngine(retry.Config{
		MaxAttemptsPerProvider: 3,
		BaseDelay:              time.Hour,
		MaxDelay:               time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	_, _, err := engine.Execute(ctx, "generate", []string{"a"},
		func(_ context.Context, _ string) (any, error) {
			once.Do(func() {
				go func() {
					time.Sleep(10 * time.Millisecond)
					cancel()
				}()
			})
			return nil, errors.New("down")
		})

	require.ErrorIs(t, err, context.Canceled)
}

func TestEngine_NoProviders(t *testing.T) {
	engine, _ := newTestEngine(fastConfig())

	_, _, err := engine.Execute(context.Background(), "generate", nil,
		func(_ context.Context, _ string) (any, error) { return nil, nil })
	assert.Error(t, err)
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, retry.Permanent(nil))

	base := errors.New("bad request")
	wrapped := retry.Permanent(base)
	assert.True(t, retry.IsPermanent(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.False(t, retry.IsPermanent(base))
}
