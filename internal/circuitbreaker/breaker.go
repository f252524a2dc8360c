package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Calls short-circuited
	StateHalfOpen              // Probing for recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Operation is a dependency call guarded by a breaker. The context is
// passed through unchanged; the breaker does not cancel it on timeout.
type Operation func(ctx context.Context) (any, error)

// Classifier reports whether an error should count toward tripping the
// breaker. Errors it rejects are still surfaced to the caller but leave
// the failure streak and state untouched.
type Classifier func(err error) bool

// Fallback produces a substitute value returned to the caller instead of
// a failure or short-circuit error.
type Fallback func(ctx context.Context, cause error) any

const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultTimeout          = 10 * time.Second
	DefaultResetTimeout     = 30 * time.Second
)

// Config describes a single breaker. Zero numeric fields fall back to the
// package defaults; a nil IsFailure counts every error.
type Config struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	ResetTimeout     time.Duration
	Fallback         Fallback
	IsFailure        Classifier
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.FailureThreshold, validation.Min(0)),
		validation.Field(&c.SuccessThreshold, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.ResetTimeout, validation.Min(time.Duration(0))),
	)
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.IsFailure == nil {
		c.IsFailure = func(error) bool { return true }
	}
	return c
}

// Counters are monotonically increasing call statistics, reset only by
// ResetCounters.
type Counters struct {
	Calls         int64 `json:"calls"`
	Successes     int64 `json:"successes"`
	Failures      int64 `json:"failures"`
	Timeouts      int64 `json:"timeouts"`
	Fallbacks     int64 `json:"fallbacks"`
	ShortCircuits int64 `json:"short_circuits"`
}

type CircuitBreaker struct {
	name             string
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	resetTimeout     time.Duration
	fallback         Fallback
	isFailure        Classifier
	onStateChange    func(StateChange)

	mutex       sync.Mutex
	state       State
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
	counters    Counters
}

// NewCircuitBreaker validates the config and builds a breaker in the
// closed state. onStateChange may be nil; when set it is invoked
// synchronously on every transition, after the breaker's lock is released.
func NewCircuitBreaker(cfg Config, onStateChange func(StateChange)) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid breaker config: %w", err)
	}

	cfg = cfg.withDefaults()

	return &CircuitBreaker{
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
		resetTimeout:     cfg.ResetTimeout,
		fallback:         cfg.Fallback,
		isFailure:        cfg.IsFailure,
		onStateChange:    onStateChange,
		state:            StateClosed,
	}, nil
}

// Execute runs op through the breaker and returns its result, a fallback
// value, or an error. While open, op is never invoked until the cooldown
// elapses; while half-open, at most SuccessThreshold probes run at once.
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation) (any, error) {
	if err := cb.admit(); err != nil {
		return cb.fallbackOr(ctx, err)
	}

	result, err := cb.call(ctx, op)
	if err == nil {
		cb.onSuccess()
		return result, nil
	}

	cb.onFailure(err)

	return cb.fallbackOr(ctx, err)
}

func (cb *CircuitBreaker) Name() string { return cb.name }

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) FailureCount() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) Counters() Counters {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.counters
}

// Reset forces the breaker back to closed with streak counts zeroed.
// Monotonic counters are left alone.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	change := cb.transitionLocked(StateClosed)
	cb.failures = 0
	cb.successes = 0
	cb.probes = 0
	cb.mutex.Unlock()

	cb.emit(change)
}

// ResetCounters zeroes the monotonic counters without touching state.
func (cb *CircuitBreaker) ResetCounters() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.counters = Counters{}
}

// admit decides whether a call may proceed. It returns ErrCircuitOpen or
// ErrTooManyProbes (wrapped) when the call must be short-circuited, and
// performs the cooldown-driven OPEN to HALF-OPEN transition.
func (cb *CircuitBreaker) admit() error {
	var change *StateChange

	cb.mutex.Lock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			cb.counters.ShortCircuits++
			cb.mutex.Unlock()
			return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
		}
		change = cb.transitionLocked(StateHalfOpen)
		cb.probes = 1

	case StateHalfOpen:
		if cb.probes >= cb.successThreshold {
			cb.counters.ShortCircuits++
			cb.mutex.Unlock()
			return fmt.Errorf("%s: %w", cb.name, ErrTooManyProbes)
		}
		cb.probes++
	}
	cb.mutex.Unlock()

	cb.emit(change)

	return nil
}

// call races op against the breaker timeout. The operation is not
// cancelled when the timeout fires; only the wait is abandoned and any
// late result is discarded.
func (cb *CircuitBreaker) call(ctx context.Context, op Operation) (any, error) {
	cb.mutex.Lock()
	cb.counters.Calls++
	cb.mutex.Unlock()

	type outcome struct {
		result any
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		result, err := op(ctx)
		done <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(cb.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.result, out.err
	case <-timer.C:
		return nil, fmt.Errorf("%s after %s: %w", cb.name, cb.timeout, ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	var change *StateChange

	cb.mutex.Lock()
	cb.counters.Successes++

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		if cb.probes > 0 {
			cb.probes--
		}
		cb.successes++
		if cb.successes >= cb.successThreshold {
			change = cb.transitionLocked(StateClosed)
		}

	case StateOpen:
		// Late result from a probe admitted before the breaker reopened;
		// counted, but state is untouched.
	}
	cb.mutex.Unlock()

	cb.emit(change)
}

func (cb *CircuitBreaker) onFailure(err error) {
	isTimeout := errors.Is(err, ErrTimeout)
	qualifying := cb.isFailure(err)

	var change *StateChange

	cb.mutex.Lock()
	cb.counters.Failures++
	if isTimeout {
		cb.counters.Timeouts++
	}

	if qualifying {
		cb.failures++
		cb.lastFailure = time.Now()

		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.failureThreshold {
				change = cb.transitionLocked(StateOpen)
			}
		case StateHalfOpen:
			change = cb.transitionLocked(StateOpen)
		}
	} else if cb.state == StateHalfOpen && cb.probes > 0 {
		// Exempted error: free the probe slot, leave the streak alone.
		cb.probes--
	}
	cb.mutex.Unlock()

	cb.emit(change)
}

func (cb *CircuitBreaker) fallbackOr(ctx context.Context, err error) (any, error) {
	if cb.fallback == nil {
		return nil, err
	}

	cb.mutex.Lock()
	cb.counters.Fallbacks++
	cb.mutex.Unlock()

	return cb.fallback(ctx, err), nil
}

// transitionLocked moves the breaker to a new state and resets the streak
// counts the target state starts from. Callers must hold the mutex.
func (cb *CircuitBreaker) transitionLocked(to State) *StateChange {
	from := cb.state
	if from == to {
		return nil
	}

	cb.state = to

	switch to {
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
		cb.probes = 0
	case StateOpen, StateHalfOpen:
		cb.successes = 0
		cb.probes = 0
	}

	return &StateChange{Name: cb.name, From: from, To: to}
}

func (cb *CircuitBreaker) emit(change *StateChange) {
	if change == nil || cb.onStateChange == nil {
		return
	}
	cb.onStateChange(*change)
}
