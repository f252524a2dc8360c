package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/szervas/fusebox/internal/circuitbreaker"
)

// Diagnostics serves the operational surface over the breaker registry:
// aggregate health, per-breaker counters, state summary, and the
// administrative reset action.
type Diagnostics struct {
	logger   *slog.Logger
	registry *circuitbreaker.Registry
}

func NewDiagnostics(logger *slog.Logger, registry *circuitbreaker.Registry) *Diagnostics {
	return &Diagnostics{logger: logger, registry: registry}
}

// Health reports aggregate and per-breaker health. Responds 503 when any
// breaker is open so load balancer probes fail along with the dependency.
func (d *Diagnostics) Health(w http.ResponseWriter, r *http.Request) {
	health := d.registry.Health()

	status := http.StatusOK
	if health.Status == circuitbreaker.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}

	d.writeJSON(w, status, health)
}

// Breakers returns each breaker's counter snapshot.
func (d *Diagnostics) Breakers(w http.ResponseWriter, r *http.Request) {
	d.writeJSON(w, http.StatusOK, d.registry.MetricsSnapshot())
}

// Summary returns breaker counts by state.
func (d *Diagnostics) Summary(w http.ResponseWriter, r *http.Request) {
	d.writeJSON(w, http.StatusOK, d.registry.Summary())
}

// Reset forces every breaker back to closed. POST only.
func (d *Diagnostics) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d.logger.Warn("Administrative reset of all circuit breakers",
		slog.String("remote", r.RemoteAddr))
	d.registry.ResetAll()

	d.writeJSON(w, http.StatusOK, d.registry.Summary())
}

func (d *Diagnostics) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		d.logger.Error("Failed to encode diagnostics response",
			slog.Any("err", err))
	}
}
