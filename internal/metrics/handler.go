package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler registers the exporter on a fresh Prometheus registry and
// returns the scrape endpoint for it.
func (e *Exporter) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(e)

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
