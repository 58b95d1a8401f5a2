package aiclient

import (
	"fmt"
	"net/http"

	"github.com/yapay-ai/provider-sentinel/pkg/retry"
)

// statusError converts an upstream HTTP status into an error that the
// retry engine can classify. Rate limits, timeouts, and server errors
// are worth retrying; any other client error is permanent.
func statusError(provider string, status int, body string) error {
	if len(body) > 200 {
		body = body[:200]
	}
	err := fmt.Errorf("%s returned status %d: %s", provider, status, body)

	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		return err
	default:
		return retry.Permanent(err)
	}
}
