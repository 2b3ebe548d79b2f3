package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	maxRecentBuilds   = 20
	defaultTopN       = 10
)

type ModeStats struct {
	Queries      int64   `json:"queries"`
	ZeroResults  int64   `json:"zero_results"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
}

type AggregatedStats struct {
	TotalQueries      int64                `json:"total_queries"`
	CacheHits         int64                `json:"cache_hits"`
	CacheMisses       int64                `json:"cache_misses"`
	ZeroResultCount   int64                `json:"zero_result_count"`
	Modes             map[string]ModeStats `json:"modes"`
	TopQueries        []QueryCount         `json:"top_queries"`
	TopTerms          []QueryCount         `json:"top_terms"`
	ZeroResultQueries []QueryCount         `json:"zero_result_queries"`
	QueriesPerMinute  float64              `json:"queries_per_minute"`
	IndexBuilds       int64                `json:"index_builds"`
	LastIndexBuild    *IndexEvent          `json:"last_index_build,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type modeState struct {
	queries     int64
	zeroResults int64
	latencySum  float64
	latencies   []float64
}

// Aggregator folds events into running totals. It is a Tracker itself, so
// the searcher can record in-process when Kafka is not configured.
type Aggregator struct {
	mu                sync.RWMutex
	totalQueries      int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	modes             map[string]*modeState
	queryCounts       map[string]int64
	termCounts        map[string]int64
	zeroResultQueries map[string]int64
	indexBuilds       int64
	lastIndex         *IndexEvent
	recentBuilds      []IndexEvent
	startTime         time.Time
	now               func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		modes:             make(map[string]*modeState),
		queryCounts:       make(map[string]int64),
		termCounts:        make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

func (a *Aggregator) Track(ev Envelope) {
	if err := a.Record(ev); err != nil {
		a.logger.Warn("analytics event ignored", "error", err)
	}
}

// Record applies one event. Envelopes whose type does not match their
// payload are rejected.
func (a *Aggregator) Record(ev Envelope) error {
	switch ev.Type {
	case EventQuery:
		if ev.Query == nil {
			return fmt.Errorf("query envelope without payload")
		}
		a.recordQuery(*ev.Query)
	case EventIndexBuild:
		if ev.Index == nil {
			return fmt.Errorf("index envelope without payload")
		}
		a.recordIndex(*ev.Index)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// HandleMessage consumes envelopes from Kafka. Undecodable messages are
// logged and committed so one bad record cannot stall the partition.
func (a *Aggregator) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	ev, err := kafka.DecodeJSON[Envelope](value)
	if err != nil {
		a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		return nil
	}
	a.Track(ev)
	return nil
}

func (a *Aggregator) recordQuery(e QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalQueries++
	if e.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}

	m, ok := a.modes[e.Mode]
	if !ok {
		m = &modeState{}
		a.modes[e.Mode] = m
	}
	m.queries++
	m.latencySum += e.LatencyMs
	if len(m.latencies) < maxLatencySamples {
		m.latencies = append(m.latencies, e.LatencyMs)
	} else {
		m.latencies[m.queries%maxLatencySamples] = e.LatencyMs
	}

	a.queryCounts[e.Query]++
	for _, t := range e.Terms {
		a.termCounts[t]++
	}
	if e.TotalHits == 0 {
		a.zeroResults++
		m.zeroResults++
		a.zeroResultQueries[e.Query]++
	}
}

func (a *Aggregator) recordIndex(e IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.indexBuilds++
	if a.lastIndex == nil || !e.Timestamp.Before(a.lastIndex.Timestamp) {
		a.lastIndex = &e
	}
	a.recentBuilds = append(a.recentBuilds, e)
	if len(a.recentBuilds) > maxRecentBuilds {
		a.recentBuilds = a.recentBuilds[len(a.recentBuilds)-maxRecentBuilds:]
	}
}

// IndexReport summarizes the index builds seen so far. Recent is newest
// first; Fingerprints counts distinct corpora among them.
type IndexReport struct {
	Builds       int64        `json:"builds"`
	Last         *IndexEvent  `json:"last,omitempty"`
	Recent       []IndexEvent `json:"recent"`
	Fingerprints int          `json:"fingerprints"`
}

func (a *Aggregator) IndexReport() IndexReport {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r := IndexReport{Builds: a.indexBuilds, Recent: make([]IndexEvent, 0, len(a.recentBuilds))}
	seen := make(map[string]struct{})
	for i := len(a.recentBuilds) - 1; i >= 0; i-- {
		e := a.recentBuilds[i]
		r.Recent = append(r.Recent, e)
		seen[e.Fingerprint] = struct{}{}
	}
	r.Fingerprints = len(seen)
	if a.lastIndex != nil {
		last := *a.lastIndex
		r.Last = &last
	}
	return r
}

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(defaultTopN)
}

// StatsTop is Stats with the query and term rankings cut to n entries.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQueries:    a.totalQueries,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		Modes:           make(map[string]ModeStats, len(a.modes)),
		IndexBuilds:     a.indexBuilds,
	}
	for name, m := range a.modes {
		ms := ModeStats{Queries: m.queries, ZeroResults: m.zeroResults}
		if m.queries > 0 {
			ms.AvgLatencyMs = m.latencySum / float64(m.queries)
		}
		if len(m.latencies) > 0 {
			sorted := make([]float64, len(m.latencies))
			copy(sorted, m.latencies)
			sort.Float64s(sorted)
			ms.P50LatencyMs = percentile(sorted, 50)
			ms.P95LatencyMs = percentile(sorted, 95)
			ms.P99LatencyMs = percentile(sorted, 99)
		}
		stats.Modes[name] = ms
	}
	if a.lastIndex != nil {
		last := *a.lastIndex
		stats.LastIndexBuild = &last
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.TopTerms = topN(a.termCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then key ascending so ties are stable.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
