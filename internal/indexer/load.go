package indexer

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/resilience"
)

// LoadEntries reads the corpus from the configured source. The database is
// retried while it comes up.
func LoadEntries(ctx context.Context, cfg *config.Config) ([]corpus.Entry, error) {
	switch cfg.Corpus.Source {
	case config.SourcePostgres:
		var db *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{}, func(ctx context.Context) error {
			var err error
			db, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return corpus.LoadPostgres(ctx, db)
	case config.SourceDir:
		return corpus.LoadDir(ctx, cfg.Corpus.DataDir, corpus.LoadOptions{
			WriteCache: cfg.Corpus.WriteCache,
			Workers:    cfg.Indexer.Workers,
		})
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
}

// Open loads the configured corpus and builds an Engine over it.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Engine, error) {
	entries, err := LoadEntries(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	store, err := corpus.NewStore(entries, corpus.StoreOptions{ExpectedDocuments: cfg.Corpus.ExpectedDocuments})
	if err != nil {
		return nil, fmt.Errorf("validating corpus: %w", err)
	}
	return NewEngine(ctx, store, Options{Workers: cfg.Indexer.Workers, Metrics: m})
}
