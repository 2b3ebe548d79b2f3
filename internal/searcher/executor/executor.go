// Package executor runs parsed queries against an indexer.Engine.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/boolean"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
)

type Document struct {
	DocID corpus.DocID `json:"doc_id"`
	Title string       `json:"title"`
}

type ScoredDocument struct {
	DocID corpus.DocID `json:"doc_id"`
	Title string       `json:"title"`
	Score float64      `json:"score"`
}

// SearchResult carries Documents for boolean queries and Results for ranked
// ones. TotalHits counts matching documents: every document in the
// intersection, or every document with a positive score.
type SearchResult struct {
	Query     string           `json:"query"`
	Mode      string           `json:"mode"`
	Terms     []string         `json:"terms"`
	TopK      int              `json:"top_k,omitempty"`
	TotalHits int              `json:"total_hits"`
	Documents []Document       `json:"documents,omitempty"`
	Results   []ScoredDocument `json:"results,omitempty"`
	TermStats map[string]int   `json:"term_stats"`
	TookMS    float64          `json:"took_ms"`
}

type Executor struct {
	engine *indexer.Engine
	logger *slog.Logger
}

func New(engine *indexer.Engine) *Executor {
	return &Executor{
		engine: engine,
		logger: slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Engine() *indexer.Engine { return e.engine }

// Boolean parses raw and returns every document containing all its terms.
func (e *Executor) Boolean(ctx context.Context, raw string) (*SearchResult, error) {
	plan, err := parser.Parse(raw, parser.ModeBoolean)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, plan, 0)
}

// Ranked parses raw and returns the topK documents by cosine similarity.
func (e *Executor) Ranked(ctx context.Context, raw string, topK int) (*SearchResult, error) {
	if topK < 0 {
		return nil, apperrors.Invalid("top_k must be >= 0, got %d", topK)
	}
	plan, err := parser.Parse(raw, parser.ModeRanked)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, plan, topK)
}

// Execute runs an already parsed plan. topK is ignored in boolean mode.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, topK int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK < 0 {
		return nil, apperrors.Invalid("top_k must be >= 0, got %d", topK)
	}
	start := time.Now()

	result := &SearchResult{
		Query:     plan.RawQuery,
		Mode:      plan.Mode.String(),
		Terms:     plan.Terms,
		TermStats: make(map[string]int, len(plan.Terms)),
	}
	for _, term := range plan.Terms {
		result.TermStats[term] = e.engine.DF(term)
	}

	switch plan.Mode {
	case parser.ModeBoolean:
		ids := boolean.RetrieveAnd(plan.Terms, e.engine)
		result.TotalHits = len(ids)
		result.Documents = make([]Document, len(ids))
		for i, id := range ids {
			title, _ := e.engine.Title(id)
			result.Documents[i] = Document{DocID: id, Title: title}
		}
	default:
		result.TopK = topK
		scored, matches := ranker.RankWithMatches(e.engine.QueryVector(plan.Terms), e.engine.DocumentVectors(), topK)
		result.TotalHits = matches
		result.Results = make([]ScoredDocument, len(scored))
		for i, s := range scored {
			title, _ := e.engine.Title(s.DocID)
			result.Results[i] = ScoredDocument{DocID: s.DocID, Title: title, Score: s.Score}
		}
	}
	result.TookMS = float64(time.Since(start).Microseconds()) / 1000

	e.logger.Debug("query executed",
		"mode", result.Mode,
		"terms", plan.Terms,
		"total_hits", result.TotalHits,
		"took_ms", result.TookMS,
	)
	return result, nil
}
