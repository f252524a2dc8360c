package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/szervas/fusebox/internal/circuitbreaker"
)

// Exporter exposes the breaker registry to Prometheus. It is both a
// collector, reading counter and state snapshots on every scrape, and a
// circuitbreaker.Listener counting transitions as they happen.
type Exporter struct {
	registry *circuitbreaker.Registry

	stateDesc         *prometheus.Desc
	callsDesc         *prometheus.Desc
	successesDesc     *prometheus.Desc
	failuresDesc      *prometheus.Desc
	timeoutsDesc      *prometheus.Desc
	fallbacksDesc     *prometheus.Desc
	shortCircuitsDesc *prometheus.Desc

	transitions *prometheus.CounterVec
}

func NewExporter(registry *circuitbreaker.Registry) *Exporter {
	labels := []string{"breaker"}

	return &Exporter{
		registry: registry,
		stateDesc: prometheus.NewDesc(
			"fusebox_breaker_state",
			"Current breaker state (0 closed, 1 open, 2 half-open)",
			labels, nil,
		),
		callsDesc: prometheus.NewDesc(
			"fusebox_breaker_calls_total",
			"Total operations invoked through the breaker",
			labels, nil,
		),
		successesDesc: prometheus.NewDesc(
			"fusebox_breaker_successes_total",
			"Total operations that succeeded within the timeout",
			labels, nil,
		),
		failuresDesc: prometheus.NewDesc(
			"fusebox_breaker_failures_total",
			"Total operations that failed or timed out",
			labels, nil,
		),
		timeoutsDesc: prometheus.NewDesc(
			"fusebox_breaker_timeouts_total",
			"Total operations that exceeded the breaker timeout",
			labels, nil,
		),
		fallbacksDesc: prometheus.NewDesc(
			"fusebox_breaker_fallbacks_total",
			"Total calls resolved with a fallback value",
			labels, nil,
		),
		shortCircuitsDesc: prometheus.NewDesc(
			"fusebox_breaker_short_circuits_total",
			"Total calls rejected without invoking the operation",
			labels, nil,
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fusebox_breaker_transitions_total",
				Help: "Total breaker state transitions",
			},
			[]string{"breaker", "from", "to"},
		),
	}
}

// OnStateChange implements circuitbreaker.Listener.
func (e *Exporter) OnStateChange(change circuitbreaker.StateChange) {
	e.transitions.WithLabelValues(
		change.Name,
		change.From.String(),
		change.To.String(),
	).Inc()
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.stateDesc
	ch <- e.callsDesc
	ch <- e.successesDesc
	ch <- e.failuresDesc
	ch <- e.timeoutsDesc
	ch <- e.fallbacksDesc
	ch <- e.shortCircuitsDesc
	e.transitions.Describe(ch)
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	for name, state := range e.registry.Stats() {
		ch <- prometheus.MustNewConstMetric(
			e.stateDesc, prometheus.GaugeValue, float64(state), name)
	}

	for name, counters := range e.registry.MetricsSnapshot() {
		ch <- prometheus.MustNewConstMetric(
			e.callsDesc, prometheus.CounterValue, float64(counters.Calls), name)
		ch <- prometheus.MustNewConstMetric(
			e.successesDesc, prometheus.CounterValue, float64(counters.Successes), name)
		ch <- prometheus.MustNewConstMetric(
			e.failuresDesc, prometheus.CounterValue, float64(counters.Failures), name)
		ch <- prometheus.MustNewConstMetric(
			e.timeoutsDesc, prometheus.CounterValue, float64(counters.Timeouts), name)
		ch <- prometheus.MustNewConstMetric(
			e.fallbacksDesc, prometheus.CounterValue, float64(counters.Fallbacks), name)
		ch <- prometheus.MustNewConstMetric(
			e.shortCircuitsDesc, prometheus.CounterValue, float64(counters.ShortCircuits), name)
	}

	e.transitions.Collect(ch)
}
