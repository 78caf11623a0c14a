package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/hydroclim/drought-index-etl/internal/adapter/http"
	kafkaadapter "github.com/hydroclim/drought-index-etl/internal/adapter/kafka"
	"github.com/hydroclim/drought-index-etl/internal/adapter/postgres"
	"github.com/hydroclim/drought-index-etl/internal/config"
	"github.com/hydroclim/drought-index-etl/internal/drought"
	"github.com/hydroclim/drought-index-etl/internal/observability"
	"github.com/hydroclim/drought-index-etl/internal/pipeline"
	"github.com/hydroclim/drought-index-etl/internal/region"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	mapping, err := region.LoadMapping(cfg.RegionMappingPath)
	if err != nil {
		logger.Error("failed to load region mapping", "path", cfg.RegionMappingPath, "error", err)
		os.Exit(1)
	}
	logger.Info("region mapping loaded", "locations", len(mapping))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	// Postgres sink is feature-flagged via DATABASE_URL.
	loader := pipeline.MultiLoader{writer}
	if cfg.DatabaseURL != "" {
		pg, err := postgres.NewWriter(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect postgres sink", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		loader = append(loader, pg)
		logger.Info("postgres sink enabled")
	} else {
		logger.Info("postgres sink disabled")
	}

	compute := pipeline.ComputeConfig{
		Scales:       cfg.Scales,
		MinFitSample: cfg.MinFitSample,
		Spell:        drought.Config{SpellCarryOver: cfg.SpellCarryOver},
	}
	p := pipeline.New(reader, loader, mapping, compute, cfg.PollInterval, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
