package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urbansafe/risk-engine/internal/adapter/httpapi"
	kafkaadapter "github.com/urbansafe/risk-engine/internal/adapter/kafka"
	"github.com/urbansafe/risk-engine/internal/adapter/memory"
	"github.com/urbansafe/risk-engine/internal/adapter/postgres"
	"github.com/urbansafe/risk-engine/internal/config"
	"github.com/urbansafe/risk-engine/internal/domain"
	"github.com/urbansafe/risk-engine/internal/observability"
	"github.com/urbansafe/risk-engine/internal/risk"
)

// incidentStore is the combined surface the server needs from a store
// implementation.
type incidentStore interface {
	domain.Store
	domain.Inserter
	httpapi.ReadinessChecker
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var store incidentStore
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := postgres.New(cfg.PostgresDSN)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close() //nolint:errcheck // process is exiting
		store = pg
		logger.Info("using postgres incident store")
	default:
		store = memory.New()
		logger.Info("using in-memory incident store")
	}

	scorer := risk.NewScorer(logger, metrics)
	engine := risk.NewEngine(store, scorer, risk.Params{
		RadiusKm: cfg.RadiusKm,
		GridStep: cfg.GridStep,
		Refine:   cfg.RefineEnabled,
	}, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, engine, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start Kafka ingest when enabled.
	var ingest *kafkaadapter.Ingest
	if cfg.KafkaEnabled {
		ingest = kafkaadapter.NewIngest(cfg, store, logger, metrics)
		go func() {
			if err := ingest.Run(ctx); err != nil {
				logger.Error("kafka ingest error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka ingest disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if ingest != nil {
		if err := ingest.Close(); err != nil {
			logger.Error("kafka ingest close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
