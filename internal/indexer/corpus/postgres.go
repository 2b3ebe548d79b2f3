package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/postgres"
)

// DocumentLister is satisfied by *postgres.Client.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]postgres.Document, error)
}

// LoadPostgres reads every row of the documents table and normalizes its body.
func LoadPostgres(ctx context.Context, db DocumentLister) ([]Entry, error) {
	docs, err := db.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus from postgres: %w", err)
	}
	entries := make([]Entry, len(docs))
	for i, d := range docs {
		entries[i] = Entry{Title: d.Title, Tokens: tokenizer.Normalize(d.Body)}
	}
	return entries, nil
}

// DocumentWriter is satisfied by *postgres.Client.
type DocumentWriter interface {
	EnsureSchema(ctx context.Context) error
	UpsertDocuments(ctx context.Context, docs []postgres.Document) error
}

// SeedPostgres copies the raw documents under <dir>/raw into the documents
// table, unnormalized, and returns how many were written.
func SeedPostgres(ctx context.Context, dir string, db DocumentWriter) (int, error) {
	src := filepath.Join(dir, rawDir)
	names, err := listTextFiles(src)
	if err != nil {
		return 0, err
	}
	docs := make([]postgres.Document, 0, len(names))
	for _, name := range names {
		title, err := rawTitle(name)
		if err != nil {
			return 0, err
		}
		body, err := os.ReadFile(filepath.Join(src, name))
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", name, err)
		}
		docs = append(docs, postgres.Document{Title: title, Body: string(body)})
	}
	if len(docs) == 0 {
		return 0, apperrors.Integrity("no raw documents in %s", src)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	if err := db.UpsertDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("seeding postgres: %w", err)
	}
	return len(docs), nil
}
