package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bookshelf-ai/recommender/internal/analytics"
	"github.com/bookshelf-ai/recommender/internal/catalog"
	"github.com/bookshelf-ai/recommender/internal/engine"
	"github.com/bookshelf-ai/recommender/internal/ratings"
	"github.com/bookshelf-ai/recommender/internal/server"
	"github.com/bookshelf-ai/recommender/internal/server/cache"
	"github.com/bookshelf-ai/recommender/internal/suggest"
	"github.com/bookshelf-ai/recommender/pkg/config"
	"github.com/bookshelf-ai/recommender/pkg/health"
	"github.com/bookshelf-ai/recommender/pkg/kafka"
	"github.com/bookshelf-ai/recommender/pkg/logger"
	"github.com/bookshelf-ai/recommender/pkg/metrics"
	"github.com/bookshelf-ai/recommender/pkg/middleware"
	"github.com/bookshelf-ai/recommender/pkg/postgres"
	pkgredis "github.com/bookshelf-ai/recommender/pkg/redis"
	"github.com/bookshelf-ai/recommender/pkg/tracing"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting recommendation service",
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
	)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
		slog.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	var pgClient *postgres.Client
	if cfg.Catalog.Source == "postgres" {
		pgClient, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgClient.Close()
	}

	repo := ratings.NewRepository()
	eng := engine.New(cfg.Engine, cfg.Recommend, m)
	refit := func(ctx context.Context) error {
		ctx, span := tracing.StartSpan(ctx, "refit", uuid.NewString())
		defer func() {
			span.End()
			span.Log()
		}()

		loadCtx, loadSpan := tracing.StartChildSpan(ctx, "load-data")
		books, records, err := loadData(loadCtx, cfg.Catalog, pgClient)
		if err != nil {
			loadSpan.End()
			return err
		}
		loadSpan.SetAttr("books", books.Len())
		loadSpan.SetAttr("ratings", len(records))
		loadSpan.End()

		_, fitSpan := tracing.StartChildSpan(ctx, "fit")
		defer fitSpan.End()
		if len(records) > 0 {
			stats := repo.Load(records)
			m.RatingsLoaded.Set(float64(stats.Loaded))
			return eng.FitWithRatings(books, repo)
		}
		return eng.Fit(books)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := refit(ctx); err != nil {
		slog.Error("initial fit failed", "error", err)
		os.Exit(1)
	}
	if cfg.Catalog.SnapshotDir != "" {
		snapshotPath := filepath.Join(cfg.Catalog.SnapshotDir, "engine.snapshot")
		if err := eng.SaveSnapshot(snapshotPath); err != nil {
			slog.Warn("snapshot save failed", "path", snapshotPath, "error", err)
		}
	}

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis, m)
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	collector := analytics.NewCollector(analyticsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, nil)
	aggregator := analytics.NewAggregator(analyticsConsumer)
	analyticsConsumer = kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator))
	aggregator = analytics.NewAggregator(analyticsConsumer)
	analyticsH := analytics.NewHandler(aggregator)
	go func() {
		if err := aggregator.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		if eng.Fitted() {
			stats := eng.Statistics()
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d books indexed", stats.Books),
			}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "not fitted"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if pgClient != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pgClient.DB.PingContext(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	suggester := suggest.NewClient(cfg.Suggest, m)
	h := server.New(eng, queryCache, collector, suggester, refit, cfg.Recommend, m)

	var chain http.Handler = h.Routes(analyticsH, checker)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	srv := &http.Server{
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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("recommendation service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("recommendation service stopped")
}

// loadData reads books and ratings from the configured source. Ratings
// are optional for every source; a missing ratings file just means a
// content-only fit.
func loadData(ctx context.Context, cfg config.CatalogConfig, pg *postgres.Client) (*catalog.Collection, []ratings.Rating, error) {
	switch cfg.Source {
	case "postgres":
		books, err := catalog.LoadBooksPostgres(ctx, pg)
		if err != nil {
			return nil, nil, err
		}
		records, err := catalog.LoadRatingsPostgres(ctx, pg)
		if err != nil {
			return nil, nil, err
		}
		return books, records, nil
	case "csv":
		books, err := catalog.LoadBooksCSV(cfg.BooksPath)
		if err != nil {
			return nil, nil, err
		}
		if cfg.RatingsPath == "" {
			return books, nil, nil
		}
		records, malformed, err := catalog.LoadRatingsCSV(cfg.RatingsPath)
		if err != nil {
			return nil, nil, err
		}
		if malformed > 0 {
			slog.Warn("skipped malformed rating rows", "count", malformed)
		}
		return books, records, nil
	default:
		return catalog.SampleBooks(), catalog.SampleRatings(), nil
	}
}
