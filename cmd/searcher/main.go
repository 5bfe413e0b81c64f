package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/softmatch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	seedPath := flag.String("seed", "", "JSON document array to insert into the SQL corpus before indexing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	checker := health.NewChecker()

	docs, closeCorpus, err := openCorpus(ctx, cfg, *seedPath, checker)
	if err != nil {
		slog.Error("failed to open corpus", "error", err)
		os.Exit(1)
	}
	defer closeCorpus()

	engine := indexer.NewEngine()
	indexed, err := engine.IndexCorpus(ctx, docs, cfg.Search.IndexFields...)
	if err != nil {
		slog.Error("failed to index corpus", "error", err)
		os.Exit(1)
	}
	m.DocsIndexedTotal.Add(float64(indexed))
	m.IndexTerms.Set(float64(len(engine.Terms())))
	checker.Register("index", health.IndexCheck(engine.CorpusSize))

	defaultRanker, err := ranker.ParseKind(cfg.Search.Ranker)
	if err != nil {
		slog.Error("invalid search.ranker", "error", err)
		os.Exit(1)
	}
	rankers := ranker.NewFactory(engine, docs, ranker.FactoryConfig{
		StaticWeight:  cfg.Search.StaticWeight,
		DynamicWeight: cfg.Search.DynamicWeight,
	})
	h := handler.New(executor.New(engine, docs), engine.GetTerms, rankers, handler.Config{
		DefaultThreshold: cfg.Search.DefaultThreshold,
		DefaultLimit:     cfg.Search.DefaultLimit,
		MaxResults:       cfg.Search.MaxResults,
		DefaultRanker:    defaultRanker,
	}).WithMetrics(m)

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
				OnStateChange: func(name string, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				},
			})
			h.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL, breaker).WithComputeTimeout(cfg.Search.Timeout))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	if cfg.Redis.Enabled {
		var ping func(context.Context) error
		if redisClient != nil {
			ping = redisClient.Ping
		}
		checker.Register("redis", health.PingCheck(ping, true))
	}

	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.Options{
			BufferSize:    cfg.Analytics.BufferSize,
			BatchSize:     cfg.Analytics.BatchSize,
			FlushInterval: cfg.Analytics.FlushEvery,
			OnDrop:        m.AnalyticsDroppedTotal.Inc,
		})
		collector.Start(ctx)
		defer collector.Close()
		h.WithCollector(collector)
		slog.Info("analytics enabled", "topic", cfg.Kafka.Topics.SearchEvents)
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, checker.ReadyHandler())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.CORS(cfg.Server.CORSOrigins),
	}
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow)
		defer limiter.Close()
		mws = append(mws, middleware.RateLimit(limiter))
	}
	mws = append(mws, middleware.Timeout(cfg.Search.Timeout))
	chain := middleware.Chain(mux, mws...)

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

	slog.Info("search service listening", "addr", server.Addr, "documents", indexed)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

// openCorpus connects to the configured document store, optionally seeding
// it, and registers its health check.
func openCorpus(ctx context.Context, cfg *config.Config, seedPath string, checker *health.Checker) (corpus.Corpus, func(), error) {
	switch cfg.Corpus.Source {
	case config.CorpusFile:
		docs, err := corpus.LoadFile(cfg.Corpus.Path)
		if err != nil {
			return nil, nil, err
		}
		return docs, func() {}, nil

	case config.CorpusSQLite:
		store, db, err := corpus.OpenSQLite(ctx, cfg.Corpus.Path)
		if err != nil {
			return nil, nil, err
		}
		checker.Register("sqlite", health.PingCheck(db.PingContext, false))
		if seedPath != "" {
			inTx := func(ctx context.Context, fn func(*sql.Tx) error) error {
				tx, err := db.BeginTx(ctx, nil)
				if err != nil {
					return fmt.Errorf("beginning transaction: %w", err)
				}
				if err := fn(tx); err != nil {
					tx.Rollback()
					return err
				}
				return tx.Commit()
			}
			if err := seed(ctx, store, inTx, seedPath); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return store, func() { db.Close() }, nil

	default:
		var client *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{
			MaxAttempts:  cfg.Corpus.LoadAttempts,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
		}, func() error {
			var err error
			client, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		checker.Register("postgres", health.PingCheck(client.Ping, false))
		store := corpus.NewSQLCorpus(client.DB, corpus.DialectPostgres)
		if err := store.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		if seedPath != "" {
			if err := seed(ctx, store, client.InTx, seedPath); err != nil {
				client.Close()
				return nil, nil, err
			}
		}
		return store, func() { client.Close() }, nil
	}
}

func seed(ctx context.Context, store *corpus.SQLCorpus, inTx func(context.Context, func(*sql.Tx) error) error, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	docs, err := corpus.ReadDocuments(f)
	if err != nil {
		return err
	}
	if err := inTx(ctx, func(tx *sql.Tx) error {
		return store.InsertTx(ctx, tx, docs)
	}); err != nil {
		return fmt.Errorf("seeding corpus: %w", err)
	}
	slog.Info("corpus seeded", "documents", len(docs), "path", path)
	return nil
}
