package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"gymnotify/internal/token"
)

// StatusError carries the HTTP status a provider API answered with, so the
// dispatch engine can tell transient failures from permanent ones.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

// IsRetryable reports whether another attempt against the provider could
// plausibly succeed. Timeouts, network errors, 5xx and provider-side 429s
// retry; other 4xx and missing configuration do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, token.ErrNotConfigured) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= http.StatusInternalServerError || se.Status == http.StatusTooManyRequests
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}

	// Unknown transport failures (connection resets, SMTP hiccups) are worth
	// another attempt; the retry ceiling bounds the damage.
	return true
}
