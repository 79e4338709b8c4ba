package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// AdapterError carries the provider's HTTP status alongside the underlying
// failure so that fan-out logging can tell retryable backend trouble from
// permanent request errors.
type AdapterError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *AdapterError) Error() string {
	switch {
	case e == nil:
		return "backend error"
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("backend error (status=%d)", e.Status)
	}
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient classifies a backend failure for dispatch logging: rate limits,
// provider 5xx responses, and network timeouts would likely succeed on a
// retry; a cancelled context or a rejected request would not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var backendErr *AdapterError
	if errors.As(err, &backendErr) {
		return backendErr.Temporary ||
			backendErr.Status == http.StatusTooManyRequests ||
			(backendErr.Status >= 500 && backendErr.Status <= 599)
	}
	return false
}
