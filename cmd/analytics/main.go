// Command analytics starts the standalone analytics aggregation service.
//
// It consumes usage events from Kafka (searches, recommendations, fits),
// aggregates them in memory (totals, latency percentiles, cache hit rate,
// top queries), and exposes an HTTP API at GET /api/v1/analytics for
// dashboards. With PostgreSQL configured it also persists periodic
// snapshots of the aggregates.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookshelf-ai/recommender/internal/analytics"
	"github.com/bookshelf-ai/recommender/internal/analytics/aggregator"
	"github.com/bookshelf-ai/recommender/pkg/config"
	"github.com/bookshelf-ai/recommender/pkg/health"
	"github.com/bookshelf-ai/recommender/pkg/kafka"
	"github.com/bookshelf-ai/recommender/pkg/logger"
	"github.com/bookshelf-ai/recommender/pkg/middleware"
	"github.com/bookshelf-ai/recommender/pkg/postgres"
)

const snapshotInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, nil)
	agg := analytics.NewAggregator(consumer)

	// Re-create consumer with the actual handler now that the aggregator
	// exists.
	consumer = kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
	agg = analytics.NewAggregator(consumer)

	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	if pgClient, err := postgres.New(cfg.Postgres); err != nil {
		slog.Warn("postgres unavailable, snapshot persistence disabled", "error", err)
	} else {
		defer pgClient.Close()
		store := aggregator.NewStore(pgClient)
		if last, ok, err := store.LatestSnapshot(ctx); err == nil && ok {
			slog.Info("previous analytics snapshot found",
				"total_searches", last.TotalSearches,
				"total_recommends", last.TotalRecommends,
			)
		}
		go store.RunPeriodicSnapshots(ctx, agg, snapshotInterval)
		slog.Info("snapshot persistence enabled", "interval", snapshotInterval)
	}

	analyticsHandler := analytics.NewHandler(agg)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/top-queries", analyticsHandler.TopQueries)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
