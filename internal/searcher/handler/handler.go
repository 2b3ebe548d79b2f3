// Package handler exposes the engine over HTTP: search, posting and weight
// lookups, document and index inspection, and cache administration.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/middleware"
)

type Options struct {
	// Cache, Tracker and Metrics are optional.
	Cache       *cache.QueryCache
	Tracker     analytics.Tracker
	Metrics     *metrics.Metrics
	DefaultTopK int
	MaxTopK     int
}

type Handler struct {
	executor    *executor.Executor
	engine      *indexer.Engine
	cache       *cache.QueryCache
	tracker     analytics.Tracker
	metrics     *metrics.Metrics
	defaultTopK int
	maxTopK     int
	logger      *slog.Logger
}

func New(exec *executor.Executor, opts Options) *Handler {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 10
	}
	if opts.MaxTopK < opts.DefaultTopK {
		opts.MaxTopK = opts.DefaultTopK
	}
	return &Handler{
		executor:    exec,
		engine:      exec.Engine(),
		cache:       opts.Cache,
		tracker:     opts.Tracker,
		metrics:     opts.Metrics,
		defaultTopK: opts.DefaultTopK,
		maxTopK:     opts.MaxTopK,
		logger:      slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/postings", h.Postings)
	mux.HandleFunc("GET /api/v1/weights", h.Weights)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	q := r.URL.Query()
	mode, err := parser.ParseMode(q.Get("mode"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	topK, err := h.parseTopK(q.Get("k"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	plan, err := parser.Parse(q.Get("q"), mode)
	if err != nil {
		h.observe(mode, "error", "none", start, 0)
		h.writeError(w, err)
		return
	}

	var result *executor.SearchResult
	cacheHit := false
	cacheStatus := "disabled"
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, topK, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, topK)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.executor.Execute(ctx, plan, topK)
	}
	if err != nil {
		log.Error("search execution failed", "query", plan.RawQuery, "mode", mode.String(), "error", err)
		h.observe(mode, "error", cacheStatus, start, 0)
		h.writeError(w, err)
		return
	}

	returned := len(result.Documents) + len(result.Results)
	outcome := "ok"
	if result.TotalHits == 0 {
		outcome = "zero_result"
	}
	h.observe(mode, outcome, cacheStatus, start, returned)
	latency := time.Since(start)

	log.Info("search completed",
		"query", plan.RawQuery,
		"mode", mode.String(),
		"total_hits", result.TotalHits,
		"returned", returned,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.tracker != nil {
		h.tracker.Track(analytics.NewQueryEnvelope(analytics.QueryEvent{
			Mode:      mode.String(),
			Query:     plan.RawQuery,
			Terms:     plan.Terms,
			TopK:      result.TopK,
			TotalHits: result.TotalHits,
			Returned:  returned,
			LatencyMs: float64(latency.Microseconds()) / 1000,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(r),
		}))
	}
	h.writeJSON(w, http.StatusOK, result)
}

// parseTopK applies the default for "" and caps at the configured maximum.
func (h *Handler) parseTopK(s string) (int, error) {
	if s == "" {
		return h.defaultTopK, nil
	}
	k, err := strconv.Atoi(s)
	if err != nil || k < 0 {
		return 0, apperrors.Invalid("k must be a non-negative integer, got %q", s)
	}
	return min(k, h.maxTopK), nil
}

func (h *Handler) observe(mode parser.Mode, outcome, cacheStatus string, start time.Time, returned int) {
	if h.metrics == nil {
		return
	}
	h.metrics.QueriesTotal.WithLabelValues(mode.String(), outcome).Inc()
	if outcome == "error" {
		return
	}
	h.metrics.QueryLatency.WithLabelValues(mode.String(), cacheStatus).Observe(time.Since(start).Seconds())
	h.metrics.QueryResultsCount.WithLabelValues(mode.String()).Observe(float64(returned))
}

type postingEntry struct {
	DocID     corpus.DocID `json:"doc_id"`
	Title     string       `json:"title"`
	Frequency int          `json:"tf"`
}

type postingsResponse struct {
	Term     string         `json:"term"`
	Lookup   string         `json:"lookup"`
	DF       int            `json:"df"`
	IDF      float64        `json:"idf"`
	Postings []postingEntry `json:"postings"`
}

// Postings looks up ?term=. With raw=true the word is normalized first.
func (h *Handler) Postings(w http.ResponseWriter, r *http.Request) {
	term, lookup, err := termParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ids := h.engine.Posting(lookup)
	resp := postingsResponse{
		Term:     term,
		Lookup:   lookup,
		DF:       h.engine.DF(lookup),
		IDF:      h.engine.IDF(lookup),
		Postings: make([]postingEntry, len(ids)),
	}
	for i, id := range ids {
		title, _ := h.engine.Title(id)
		resp.Postings[i] = postingEntry{DocID: id, Title: title, Frequency: h.engine.TF(lookup, id)}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type weightResponse struct {
	Term   string       `json:"term"`
	Lookup string       `json:"lookup"`
	DocID  corpus.DocID `json:"doc_id"`
	Title  string       `json:"title"`
	TF     int          `json:"tf"`
	IDF    float64      `json:"idf"`
	Weight float64      `json:"weight"`
}

// Weights returns the TF-IDF weight of ?term= in ?doc=.
func (h *Handler) Weights(w http.ResponseWriter, r *http.Request) {
	term, lookup, err := termParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	doc, title, err := h.docParam(r.URL.Query().Get("doc"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, weightResponse{
		Term:   term,
		Lookup: lookup,
		DocID:  doc,
		Title:  title,
		TF:     h.engine.TF(lookup, doc),
		IDF:    h.engine.IDF(lookup),
		Weight: h.engine.Weight(lookup, doc),
	})
}

type documentResponse struct {
	DocID         corpus.DocID `json:"doc_id"`
	Title         string       `json:"title"`
	Length        int          `json:"length"`
	DistinctTerms int          `json:"distinct_terms"`
	Norm          float64      `json:"norm"`
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	doc, title, err := h.docParam(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	vec, _ := h.engine.DocumentVector(doc)
	h.writeJSON(w, http.StatusOK, documentResponse{
		DocID:         doc,
		Title:         title,
		Length:        h.engine.DocLength(doc),
		DistinctTerms: vec.Len(),
		Norm:          vec.Norm,
	})
}

type indexStatsResponse struct {
	Fingerprint string             `json:"fingerprint"`
	Documents   int                `json:"documents"`
	Vocabulary  int                `json:"vocabulary"`
	Build       indexer.BuildStats `json:"build"`
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, indexStatsResponse{
		Fingerprint: h.engine.Fingerprint(),
		Documents:   h.engine.NumDocs(),
		Vocabulary:  h.engine.Vocabulary().Len(),
		Build:       h.engine.BuildStats(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// termParam returns the term as given and the normalized form used for the
// lookup; they differ only with raw=true.
func termParam(r *http.Request) (term, lookup string, err error) {
	q := r.URL.Query()
	term = q.Get("term")
	if term == "" {
		return "", "", apperrors.Invalid("query parameter 'term' is required")
	}
	lookup = term
	if raw, _ := strconv.ParseBool(q.Get("raw")); raw {
		lookup = tokenizer.StemWord(term)
	}
	return term, lookup, nil
}

func (h *Handler) docParam(s string) (corpus.DocID, string, error) {
	if s == "" {
		return 0, "", apperrors.Invalid("document id is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, "", apperrors.Invalid("document id must be an integer, got %q", s)
	}
	title, ok := h.engine.Title(corpus.DocID(n))
	if !ok {
		return 0, "", apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "no document with id %d", n)
	}
	return corpus.DocID(n), title, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError exposes AppError messages; anything else is reported generically.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := http.StatusText(status)
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		msg = appErr.Message
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
