package circuitbreaker

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned when a call is short-circuited because
	// the breaker is open and the cooldown has not elapsed.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyProbes is returned when the breaker is half-open and all
	// probe slots are already taken by in-flight calls.
	ErrTooManyProbes = errors.New("circuit breaker is half-open: too many probes")

	// ErrTimeout is returned when the wrapped operation does not settle
	// within the breaker's timeout. The operation itself is not cancelled,
	// only the breaker's wait is abandoned.
	ErrTimeout = errors.New("operation timed out")
)

// StatusError carries an HTTP status code returned by a dependency.
// Failure classifiers use it to exempt expected responses, such as
// rate limiting, from tripping a breaker.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dependency returned status %d", e.Code)
	}
	return fmt.Sprintf("dependency returned status %d: %s", e.Code, e.Message)
}
