// Package indexer builds the immutable retrieval index from a corpus store:
// postings, then statistics, then TF-IDF vectors, once. An Engine never
// changes after NewEngine returns, so any number of goroutines may query it
// without locking.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/stats"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/weighting"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/tracing"
	"github.com/RoaringBitmap/roaring/v2"
)

type Options struct {
	Workers int
	// Metrics is optional.
	Metrics *metrics.Metrics
}

type BuildStats struct {
	Documents int                      `json:"documents"`
	Terms     int                      `json:"terms"`
	Postings  int                      `json:"postings"`
	Duration  time.Duration            `json:"duration"`
	Phases    map[string]time.Duration `json:"phases"`
	TraceID   string                   `json:"trace_id"`
}

type Engine struct {
	store       *corpus.Store
	vocab       *corpus.Vocabulary
	postings    *index.Postings
	stats       *stats.Stats
	vectors     []weighting.Vector
	bitmaps     []*roaring.Bitmap
	fingerprint string
	buildStats  BuildStats
	logger      *slog.Logger
}

func NewEngine(ctx context.Context, store *corpus.Store, opts Options) (*Engine, error) {
	logger := slog.Default().With("component", "indexer")
	start := time.Now()
	ctx, root := tracing.StartSpan(ctx, "index.build", "")

	e := &Engine{store: store, logger: logger}

	_, span := tracing.StartChildSpan(ctx, "vocabulary")
	e.vocab = corpus.BuildVocabulary(store)
	span.SetAttr("terms", e.vocab.Len())
	span.End()

	pctx, span := tracing.StartChildSpan(ctx, "postings")
	postings, err := index.Build(pctx, store, e.vocab, opts.Workers)
	if err != nil {
		span.End()
		return nil, fmt.Errorf("building postings: %w", err)
	}
	span.SetAttr("postings", postings.Total())
	span.End()
	e.postings = postings

	_, span = tracing.StartChildSpan(ctx, "statistics")
	e.stats = stats.Compute(postings)
	span.End()

	_, span = tracing.StartChildSpan(ctx, "weighting")
	e.vectors = weighting.DocumentVectors(postings, e.stats)
	span.End()

	_, span = tracing.StartChildSpan(ctx, "bitmaps")
	e.bitmaps = make([]*roaring.Bitmap, postings.NumTerms())
	for t := range e.bitmaps {
		bm := roaring.New()
		for _, p := range postings.List(corpus.TermID(t)) {
			bm.Add(uint32(p.DocID))
		}
		bm.RunOptimize()
		e.bitmaps[t] = bm
	}
	span.End()

	e.fingerprint = fingerprint(store)
	root.SetAttr("fingerprint", e.fingerprint)
	root.End()
	root.Log(logger)

	e.buildStats = BuildStats{
		Documents: store.Len(),
		Terms:     e.vocab.Len(),
		Postings:  postings.Total(),
		Duration:  time.Since(start),
		Phases:    root.Phases(),
		TraceID:   root.TraceID,
	}
	if m := opts.Metrics; m != nil {
		m.IndexBuildDuration.Observe(e.buildStats.Duration.Seconds())
		m.IndexedDocuments.Set(float64(e.buildStats.Documents))
		m.VocabularySize.Set(float64(e.buildStats.Terms))
	}
	logger.Info("index built",
		"documents", e.buildStats.Documents,
		"terms", e.buildStats.Terms,
		"postings", e.buildStats.Postings,
		"duration", e.buildStats.Duration,
		"fingerprint", e.fingerprint[:12],
	)
	return e, nil
}

// fingerprint hashes titles and tokens in DocID order. Lengths are written
// before each field so no two corpora share an encoding.
func fingerprint(store *corpus.Store) string {
	h := sha256.New()
	var n [8]byte
	write := func(s string) {
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	for _, doc := range store.Documents() {
		write(doc.Title)
		binary.BigEndian.PutUint64(n[:], uint64(len(doc.Tokens)))
		h.Write(n[:])
		for _, tok := range doc.Tokens {
			write(tok)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Posting returns the ascending DocIDs containing an already-normalized
// term; empty for unknown terms.
func (e *Engine) Posting(term string) []corpus.DocID {
	id, ok := e.vocab.ID(term)
	if !ok {
		return []corpus.DocID{}
	}
	return e.postings.DocIDs(id)
}

// PostingUnstemmed normalizes word first.
func (e *Engine) PostingUnstemmed(word string) []corpus.DocID {
	return e.Posting(tokenizer.StemWord(word))
}

// PostingBitmap returns the shared bitmap of term, nil when unknown.
// Callers must clone before modifying it.
func (e *Engine) PostingBitmap(term string) *roaring.Bitmap {
	id, ok := e.vocab.ID(term)
	if !ok {
		return nil
	}
	return e.bitmaps[id]
}

func (e *Engine) TF(term string, doc corpus.DocID) int {
	id, ok := e.vocab.ID(term)
	if !ok {
		return 0
	}
	return e.postings.TF(id, doc)
}

func (e *Engine) DF(term string) int {
	id, ok := e.vocab.ID(term)
	if !ok {
		return 0
	}
	return e.stats.DFOf(id)
}

func (e *Engine) IDF(term string) float64 {
	id, ok := e.vocab.ID(term)
	if !ok {
		return 0
	}
	return e.stats.IDFOf(id)
}

// Weight is the TF-IDF weight of term in doc, zero when either is unknown.
func (e *Engine) Weight(term string, doc corpus.DocID) float64 {
	id, ok := e.vocab.ID(term)
	if !ok || doc < 0 || int(doc) >= len(e.vectors) {
		return 0
	}
	return e.vectors[doc].Weight(id)
}

func (e *Engine) WeightUnstemmed(word string, doc corpus.DocID) float64 {
	return e.Weight(tokenizer.StemWord(word), doc)
}

// DocumentVector returns the shared vector of doc.
func (e *Engine) DocumentVector(doc corpus.DocID) (weighting.Vector, bool) {
	if doc < 0 || int(doc) >= len(e.vectors) {
		return weighting.Vector{}, false
	}
	return e.vectors[doc], true
}

// DocumentVectors returns every vector in DocID order; shared, read-only.
func (e *Engine) DocumentVectors() []weighting.Vector { return e.vectors }

func (e *Engine) QueryVector(terms []string) weighting.Vector {
	return weighting.QueryVector(terms, e.vocab, e.stats)
}

func (e *Engine) Title(doc corpus.DocID) (string, bool) { return e.store.Title(doc) }

func (e *Engine) Document(doc corpus.DocID) (corpus.Document, bool) { return e.store.Document(doc) }

func (e *Engine) NumDocs() int { return e.store.Len() }

// DocLength is the token count of doc.
func (e *Engine) DocLength(doc corpus.DocID) int {
	if doc < 0 || int(doc) >= len(e.stats.DocLengths) {
		return 0
	}
	return e.stats.DocLengths[doc]
}

func (e *Engine) Vocabulary() *corpus.Vocabulary { return e.vocab }

func (e *Engine) Fingerprint() string { return e.fingerprint }

func (e *Engine) BuildStats() BuildStats { return e.buildStats }
