package circuitbreaker

import (
	"context"
	"log/slog"
	"sync"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// BreakerHealth is the health of one breaker, derived from its state.
type BreakerHealth struct {
	Status HealthStatus `json:"status"`
	State  string       `json:"state"`
}

// Health aggregates per-breaker health: unhealthy if any breaker is open,
// degraded if any is half-open, healthy otherwise.
type Health struct {
	Status   HealthStatus             `json:"status"`
	Breakers map[string]BreakerHealth `json:"breakers"`
}

// Summary counts breakers by state. Closed + Open + HalfOpen == Total.
type Summary struct {
	Total    int `json:"total"`
	Closed   int `json:"closed"`
	Open     int `json:"open"`
	HalfOpen int `json:"half_open"`
}

// Registry owns every breaker in the process. Callers reference breakers
// by name only; Execute is the sole integration point for dependency calls.
type Registry struct {
	logger   *slog.Logger
	profiles []Config

	mutex       sync.RWMutex
	breakers    map[string]*CircuitBreaker
	listeners   []Listener
	initialized bool
}

// NewRegistry builds a registry around the given profile table. The
// profiles are not instantiated until Initialize is called.
func NewRegistry(logger *slog.Logger, profiles []Config) *Registry {
	return &Registry{
		logger:   logger,
		profiles: profiles,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// AddListener attaches a consumer of state-change events. Listeners are
// notified synchronously on the goroutine that triggered the transition.
func (r *Registry) AddListener(listener Listener) {
	if listener == nil {
		r.logger.Warn("Ignoring nil state change listener")
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.listeners = append(r.listeners, listener)
}

// Initialize constructs one breaker per profile-table entry. It is
// idempotent; calls after the first are no-ops.
func (r *Registry) Initialize() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.initialized {
		return nil
	}

	for _, profile := range r.profiles {
		if _, exists := r.breakers[profile.Name]; exists {
			continue
		}

		cb, err := NewCircuitBreaker(profile, r.notify)
		if err != nil {
			return err
		}
		r.breakers[profile.Name] = cb
	}

	r.initialized = true
	r.logger.Info("Circuit breaker registry initialized",
		slog.Int("breakers", len(r.breakers)))

	return nil
}

// Register creates a breaker for a dependency outside the profile table.
// If the name is already taken the existing breaker is returned untouched.
func (r *Registry) Register(cfg Config) (*CircuitBreaker, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if existing, exists := r.breakers[cfg.Name]; exists {
		r.logger.Warn("Circuit breaker already registered, keeping existing",
			slog.String("name", cfg.Name))
		return existing, nil
	}

	cb, err := NewCircuitBreaker(cfg, r.notify)
	if err != nil {
		return nil, err
	}

	r.breakers[cfg.Name] = cb
	r.logger.Info("Registered circuit breaker", slog.String("name", cfg.Name))

	return cb, nil
}

// Get looks up a breaker by name.
func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cb, exists := r.breakers[name]
	return cb, exists
}

// Execute runs op through the named breaker. Unknown names fail open: the
// operation runs unprotected rather than being blocked by a missing breaker.
func (r *Registry) Execute(ctx context.Context, name string, op Operation) (any, error) {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if !exists {
		r.logger.Warn("No circuit breaker registered, executing unprotected",
			slog.String("name", name))
		return op(ctx)
	}

	return cb.Execute(ctx, op)
}

// Health reports per-breaker and aggregate health.
func (r *Registry) Health() Health {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	health := Health{
		Status:   HealthHealthy,
		Breakers: make(map[string]BreakerHealth, len(r.breakers)),
	}

	for name, cb := range r.breakers {
		state := cb.State()

		status := HealthHealthy
		switch state {
		case StateOpen:
			status = HealthUnhealthy
		case StateHalfOpen:
			status = HealthDegraded
		}

		health.Breakers[name] = BreakerHealth{Status: status, State: state.String()}

		if status == HealthUnhealthy {
			health.Status = HealthUnhealthy
		} else if status == HealthDegraded && health.Status == HealthHealthy {
			health.Status = HealthDegraded
		}
	}

	return health
}

// MetricsSnapshot returns each breaker's counters.
func (r *Registry) MetricsSnapshot() map[string]Counters {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snapshot := make(map[string]Counters, len(r.breakers))
	for name, cb := range r.breakers {
		snapshot[name] = cb.Counters()
	}
	return snapshot
}

// Stats returns the current state of every breaker.
func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.State()
	}
	return stats
}

// Summary counts breakers by state.
func (r *Registry) Summary() Summary {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	summary := Summary{Total: len(r.breakers)}
	for _, cb := range r.breakers {
		switch cb.State() {
		case StateClosed:
			summary.Closed++
		case StateOpen:
			summary.Open++
		case StateHalfOpen:
			summary.HalfOpen++
		}
	}
	return summary
}

// ResetAll forces every breaker back to closed. Administrative recovery
// action; monotonic counters are preserved.
func (r *Registry) ResetAll() {
	// Reset outside the registry lock: closing a tripped breaker emits a
	// transition, and notify re-acquires the lock.
	breakers := r.snapshotBreakers()

	for _, cb := range breakers {
		cb.Reset()
	}
	r.logger.Info("All circuit breakers reset to closed",
		slog.Int("breakers", len(breakers)))
}

func (r *Registry) snapshotBreakers() []*CircuitBreaker {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	return breakers
}

// ResetAllMetrics zeroes every breaker's counters without touching state.
func (r *Registry) ResetAllMetrics() {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, cb := range r.breakers {
		cb.ResetCounters()
	}
}

// Shutdown detaches all listeners and discards all breakers. A subsequent
// Initialize rebuilds the profile table from scratch.
func (r *Registry) Shutdown() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.breakers = make(map[string]*CircuitBreaker)
	r.listeners = nil
	r.initialized = false
	r.logger.Info("Circuit breaker registry shut down")
}

// notify fans a transition out to all listeners. A panicking listener is
// logged and skipped so it cannot take down the calling goroutine.
func (r *Registry) notify(change StateChange) {
	r.mutex.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mutex.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("State change listener panicked",
						slog.String("breaker", change.Name),
						slog.Any("panic", rec))
				}
			}()
			listener.OnStateChange(change)
		}()
	}
}
