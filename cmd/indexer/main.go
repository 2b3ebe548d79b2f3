// Command indexer loads the configured corpus, writes the normalized cache,
// and builds the index once to verify corpus integrity. With -seed it first
// copies the raw documents of corpus.dataDir into Postgres.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-seed]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/resilience"
)

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	seed := flag.Bool("seed", false, "copy raw documents from corpus.dataDir into postgres before indexing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)
	slog.Info("starting indexer", "corpus_source", cfg.Corpus.Source, "workers", cfg.Indexer.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *seed {
		if err := seedPostgres(ctx, cfg); err != nil {
			slog.Error("seeding postgres failed", "error", err)
			os.Exit(1)
		}
	}

	engine, err := indexer.Open(ctx, cfg, metrics.New())
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	build := engine.BuildStats()
	slog.Info("index built",
		"documents", build.Documents,
		"terms", build.Terms,
		"postings", build.Postings,
		"duration", build.Duration,
		"trace_id", build.TraceID,
		"fingerprint", engine.Fingerprint(),
	)
	for phase, d := range build.Phases {
		slog.Debug("build phase", "phase", phase, "duration", d)
	}

	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexEvents)
		defer producer.Close()
		ev := analytics.NewIndexEnvelope(analytics.IndexEvent{
			Source:      cfg.Corpus.Source,
			Fingerprint: engine.Fingerprint(),
			Documents:   build.Documents,
			Terms:       build.Terms,
			Postings:    build.Postings,
			DurationMs:  float64(build.Duration.Microseconds()) / 1000,
			Timestamp:   time.Now().UTC(),
		})
		err := resilience.Retry(ctx, "publish-index-event", resilience.RetryConfig{MaxAttempts: 3}, func(ctx context.Context) error {
			return producer.Publish(ctx, kafka.Event{Key: ev.Key(), Value: ev})
		})
		if err != nil {
			slog.Warn("failed to publish index event", "topic", producer.Topic(), "error", err)
		}
	}

	slog.Info("indexer finished")
}

func seedPostgres(ctx context.Context, cfg *config.Config) error {
	var db *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{}, func(ctx context.Context) error {
		var err error
		db, err = postgres.New(ctx, cfg.Postgres)
		return err
	})
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := corpus.SeedPostgres(ctx, cfg.Corpus.DataDir, db)
	if err != nil {
		return err
	}
	slog.Info("seeded postgres", "documents", n, "dir", cfg.Corpus.DataDir)
	return nil
}
