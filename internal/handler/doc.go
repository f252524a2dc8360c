// Package handler provides the HTTP diagnostics surface over the circuit
// breaker registry: health aggregation for load balancer probes, counter
// and state snapshots for dashboards, and the administrative reset action.
package handler
