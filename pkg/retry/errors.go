package retry

import (
	"errors"
	"fmt"
	"strings"
)

// PermanentError wraps a failure that retrying cannot fix, such as a
// malformed request rejected by the provider. The engine stops retrying
// that provider immediately and moves to failover.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked non-retryable.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// ProviderFailure describes how one provider fared during a failed
// execution.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Attempts int    `json:"attempts"`
	// Skipped is true when the provider's circuit was open and no call was
	// made, as opposed to calls being made and failing.
	Skipped bool  `json:"skipped"`
	LastErr error `json:"-"`
}

// ExhaustedError is returned when every candidate provider has been tried
// (or skipped) without success.
type ExhaustedError struct {
	Operation string
	Failures  []ProviderFailure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Skipped {
			parts = append(parts, fmt.Sprintf("%s: skipped (circuit open)", f.Provider))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d attempt(s), last error: %v", f.Provider, f.Attempts, f.LastErr))
	}
	return fmt.Sprintf("all providers exhausted for %s [%s]", e.Operation, strings.Join(parts, "; "))
}
