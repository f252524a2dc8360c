// Package metrics exposes circuit breaker state and counters to Prometheus.
//
// The Exporter reads registry snapshots on every scrape, so counter series
// always match what the diagnostics endpoints report, and it doubles as a
// state-change listener to count transitions as they happen:
//
//	exporter := metrics.NewExporter(registry)
//	registry.AddListener(exporter)
//	mux.Handle("/metrics", exporter.Handler())
package metrics
