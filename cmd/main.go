package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/szervas/fusebox/config"
	"github.com/szervas/fusebox/internal/circuitbreaker"
	"github.com/szervas/fusebox/internal/handler"
	"github.com/szervas/fusebox/internal/httpserver"
	"github.com/szervas/fusebox/internal/metrics"
	"github.com/szervas/fusebox/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry, exporter, err := initializeRegistry(cfg, log)
	if err != nil {
		log.Error("Failed to initialize breaker registry", slog.Any("err", err))
		os.Exit(1)
	}
	defer registry.Shutdown()

	diagnostics := handler.NewDiagnostics(log, registry)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(diagnostics, exporter))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Diagnostics server started", slog.String("address", cfg.Server.Address))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error running diagnostics server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// initializeRegistry builds the breaker registry from the profile table
// with config overrides applied, and attaches the logging and Prometheus
// state-change listeners.
func initializeRegistry(cfg *config.Config, log *slog.Logger) (*circuitbreaker.Registry, *metrics.Exporter, error) {
	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, nil, err
	}

	registry := circuitbreaker.NewRegistry(log, profiles)

	exporter := metrics.NewExporter(registry)
	registry.AddListener(circuitbreaker.NewLogListener(log))
	registry.AddListener(exporter)

	if err := registry.Initialize(); err != nil {
		return nil, nil, err
	}

	return registry, exporter, nil
}
