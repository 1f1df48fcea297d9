// Package clients provides the instrumented HTTP client used to reach the
// remote posts endpoint.
package clients

import (
	"errors"
	"fmt"
)

// Client errors are infrastructure failures; the acl package translates
// them into domain.NetworkError.
var (
	// ErrCircuitOpen is returned without contacting the remote while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt is used.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// StatusError is the failure recorded for a 5xx attempt.
type StatusError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: %d", e.StatusCode)
}
