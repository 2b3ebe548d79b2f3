// Command searcher loads the corpus, builds the index once and serves
// boolean and ranked retrieval over HTTP.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/resilience"
)

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	engine, err := indexer.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}
	build := engine.BuildStats()
	slog.Info("index ready",
		"documents", build.Documents,
		"terms", build.Terms,
		"postings", build.Postings,
		"duration", build.Duration,
		"fingerprint", engine.Fingerprint(),
	)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", engine.NumDocs())}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			backend := cache.Guard(redisClient, 250*time.Millisecond, resilience.BreakerConfig{FailureThreshold: 5, Cooldown: 30 * time.Second})
			queryCache = cache.New(backend, cfg.Redis.CacheTTL, engine.Fingerprint(), m)
			checker.Register("redis", health.Soft(health.Ping(redisClient.Ping)))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var tracker analytics.Tracker = aggregator
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize, 100, time.Second)
		collector.Start(context.Background())
		defer collector.Close()
		tracker = collector

		for _, topic := range []string{cfg.Kafka.Topics.QueryEvents, cfg.Kafka.Topics.IndexEvents} {
			consumer := kafka.NewConsumer(cfg.Kafka, topic, aggregator.HandleMessage)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					slog.Error("analytics consumer error", "topic", topic, "error", err)
				}
			}()
		}
		slog.Info("analytics pipeline started",
			"query_topic", cfg.Kafka.Topics.QueryEvents,
			"index_topic", cfg.Kafka.Topics.IndexEvents,
		)
	}
	aggregator.Track(analytics.NewIndexEnvelope(analytics.IndexEvent{
		Source:      cfg.Corpus.Source,
		Fingerprint: engine.Fingerprint(),
		Documents:   build.Documents,
		Terms:       build.Terms,
		Postings:    build.Postings,
		DurationMs:  float64(build.Duration.Microseconds()) / 1000,
		Timestamp:   time.Now().UTC(),
	}))

	h := handler.New(executor.New(engine), handler.Options{
		Cache:       queryCache,
		Tracker:     tracker,
		Metrics:     m,
		DefaultTopK: cfg.Search.DefaultTopK,
		MaxTopK:     cfg.Search.MaxTopK,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	analytics.NewHandler(aggregator).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Deferred closes (collector, producer, redis) must not run while
	// in-flight handlers can still reach them.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("search service stopped")
}
