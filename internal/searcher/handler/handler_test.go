package handler

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *mapBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapBackend) DeletePattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	m.data = map[string][]byte{}
	return n, nil
}

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.Envelope
}

func (r *recordingTracker) Track(ev analytics.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type fixture struct {
	mux     *http.ServeMux
	tracker *recordingTracker
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	store, err := corpus.NewStore([]corpus.Entry{
		{Title: "c", Tokens: []string{"cat", "and", "dog"}},
		{Title: "a", Tokens: []string{"the", "cat", "sat"}},
		{Title: "b", Tokens: []string{"the", "dog", "sat"}},
	}, corpus.StoreOptions{})
	require.NoError(t, err)
	engine, err := indexer.NewEngine(context.Background(), store, indexer.Options{Workers: 1})
	require.NoError(t, err)

	f := &fixture{tracker: &recordingTracker{}, reg: prometheus.NewRegistry()}
	m := metrics.NewWithRegistry(f.reg)
	opts := Options{Tracker: f.tracker, Metrics: m, DefaultTopK: 2, MaxTopK: 5}
	if withCache {
		opts.Cache = cache.New(&mapBackend{data: map[string][]byte{}}, time.Minute, engine.Fingerprint(), m)
	}
	f.mux = http.NewServeMux()
	New(executor.New(engine), opts).Register(f.mux)
	return f
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestSearchRanked(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/v1/search?q=cat+dog")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[executor.SearchResult](t, rec)
	assert.Equal(t, "ranked", res.Mode)
	assert.Equal(t, 2, res.TopK)
	require.Len(t, res.Results, 2)
	assert.Equal(t, corpus.DocID(2), res.Results[0].DocID)
	assert.Equal(t, "c", res.Results[0].Title)
	assert.Equal(t, 3, res.TotalHits)

	require.Len(t, f.tracker.events, 1)
	ev := f.tracker.events[0]
	assert.Equal(t, analytics.EventQuery, ev.Type)
	assert.Equal(t, []string{"cat", "dog"}, ev.Query.Terms)
	assert.Equal(t, 2, ev.Query.Returned)
	assert.False(t, ev.Query.CacheHit)
}

func TestSearchBoolean(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/v1/search?q=the+sat&mode=boolean")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[executor.SearchResult](t, rec)
	assert.Equal(t, "boolean", res.Mode)
	assert.Equal(t, []executor.Document{{DocID: 0, Title: "a"}, {DocID: 1, Title: "b"}}, res.Documents)
	assert.Equal(t, 2, res.TotalHits)
}

func TestSearchCapsTopK(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/v1/search?q=cat&k=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[executor.SearchResult](t, rec)
	assert.Equal(t, 5, res.TopK)
	assert.Len(t, res.Results, 3)
}

func TestSearchRejectsBadInput(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		name   string
		target string
	}{
		{"missing query", "/api/v1/search"},
		{"blank query", "/api/v1/search?q=+++"},
		{"unknown mode", "/api/v1/search?q=cat&mode=fuzzy"},
		{"negative k", "/api/v1/search?q=cat&k=-1"},
		{"non-numeric k", "/api/v1/search?q=cat&k=ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, f.tracker.events)
}

func TestSearchCachesResults(t *testing.T) {
	f := newFixture(t, true)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/search?q=dog+cat&mode=boolean").Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/search?q=cat+dog+cat&mode=boolean").Code)

	require.Len(t, f.tracker.events, 2)
	assert.False(t, f.tracker.events[0].Query.CacheHit)
	assert.True(t, f.tracker.events[1].Query.CacheHit)

	stats := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/v1/cache/stats"))
	assert.EqualValues(t, 1, stats["hits"])
	assert.EqualValues(t, 1, stats["misses"])

	rec := f.do(t, http.MethodPost, "/api/v1/cache/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["keys_deleted"])
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, "disabled", decode[map[string]string](t, f.do(t, http.MethodGet, "/api/v1/cache/stats"))["status"])
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/api/v1/cache/invalidate").Code)
}

func TestPostings(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/postings?term=Cats&raw=true")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[postingsResponse](t, rec)
	assert.Equal(t, "cat", resp.Lookup)
	assert.Equal(t, 2, resp.DF)
	assert.Equal(t, []postingEntry{{DocID: 0, Title: "a", Frequency: 1}, {DocID: 2, Title: "c", Frequency: 1}}, resp.Postings)

	rec = f.do(t, http.MethodGet, "/api/v1/postings?term=Cats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[postingsResponse](t, rec).Postings)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/postings").Code)
}

func TestWeights(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/weights?term=cat&doc=0")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[weightResponse](t, rec)
	assert.Equal(t, "a", resp.Title)
	assert.Equal(t, 1, resp.TF)
	assert.InDelta(t, math.Log10(1.5), resp.Weight, 1e-12)

	rec = f.do(t, http.MethodGet, "/api/v1/weights?term=cat&doc=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[weightResponse](t, rec).Weight)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/weights?term=cat&doc=9").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/weights?term=cat&doc=x").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/weights?term=cat").Code)
}

func TestDocumentAndIndexStats(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/documents/2")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[documentResponse](t, rec)
	assert.Equal(t, "c", doc.Title)
	assert.Equal(t, 3, doc.Length)
	assert.Equal(t, 3, doc.DistinctTerms)
	assert.Greater(t, doc.Norm, 0.0)

	rec = f.do(t, http.MethodGet, "/api/v1/documents/-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "no document"))

	stats := decode[indexStatsResponse](t, f.do(t, http.MethodGet, "/api/v1/index/stats"))
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, 5, stats.Vocabulary)
	assert.Len(t, stats.Fingerprint, 64)
}

func TestSearchRecordsMetrics(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodGet, "/api/v1/search?q=elephant&mode=boolean")
	f.do(t, http.MethodGet, "/api/v1/search?q=cat")

	families, err := f.reg.Gather()
	require.NoError(t, err)
	outcomes := map[string]float64{}
	for _, fam := range families {
		if fam.GetName() != "ir_queries_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			var mode, outcome string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "mode":
					mode = l.GetValue()
				case "outcome":
					outcome = l.GetValue()
				}
			}
			outcomes[mode+"/"+outcome] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"boolean/zero_result": 1, "ranked/ok": 1}, outcomes)
}
