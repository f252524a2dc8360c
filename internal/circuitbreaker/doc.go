// Package circuitbreaker implements per-dependency fault isolation for
// unreliable external services.
//
// Each breaker is a three-state machine wrapping calls to one dependency:
//
//   - CLOSED: normal operation, calls pass through and failures are tracked
//   - OPEN: calls are short-circuited for a cooldown period
//   - HALF-OPEN: a bounded number of probe calls test recovery
//
// A Registry owns all breakers, pre-populates them from a profile table at
// startup, and aggregates health and metrics across them. Callers never
// hold breaker references; they go through the registry by name:
//
//	registry := circuitbreaker.NewRegistry(log, circuitbreaker.DefaultProfiles())
//	registry.AddListener(circuitbreaker.NewLogListener(log))
//	if err := registry.Initialize(); err != nil {
//	    // ...
//	}
//
//	result, err := registry.Execute(ctx, circuitbreaker.ProfileDatabase,
//	    func(ctx context.Context) (any, error) {
//	        return db.QueryContext(ctx, query)
//	    })
//
// Calls race against the breaker's timeout, but a timed-out operation is
// not cancelled; only the breaker's wait is abandoned and a late result
// discarded. While half-open, at most SuccessThreshold probes may be in
// flight; surplus callers are short-circuited with ErrTooManyProbes.
//
// The breaker never retries and keeps no state across restarts. Retry
// policies compose on top of Execute and are deliberately out of scope.
package circuitbreaker
