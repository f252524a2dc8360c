package main

import (
	"net/http"

	"github.com/szervas/fusebox/internal/handler"
	"github.com/szervas/fusebox/internal/metrics"
)

func setupRouter(diagnostics *handler.Diagnostics, exporter *metrics.Exporter) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", diagnostics.Health)
	mux.HandleFunc("/breakers", diagnostics.Breakers)
	mux.HandleFunc("/breakers/summary", diagnostics.Summary)
	mux.HandleFunc("/breakers/reset", diagnostics.Reset)
	mux.Handle("/metrics", exporter.Handler())

	return mux
}
