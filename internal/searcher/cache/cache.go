// Package cache stores query results in Redis. Keys hash the corpus
// fingerprint together with the normalized query, so results from a
// different corpus are never served.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "ir:search:"

// Backend is satisfied by *redis.Client.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend     Backend
	ttl         time.Duration
	fingerprint string
	metrics     *metrics.Metrics
	group       singleflight.Group
	logger      *slog.Logger
	hits        atomic.Int64
	misses      atomic.Int64
}

// New returns a cache for the corpus identified by fingerprint. m may be nil.
func New(backend Backend, ttl time.Duration, fingerprint string, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend:     backend,
		ttl:         ttl,
		fingerprint: fingerprint,
		metrics:     m,
		logger:      slog.Default().With("component", "query-cache"),
	}
}

// Get never fails: backend and decoding errors count as misses.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, topK int) (*executor.SearchResult, bool) {
	key := c.Key(plan, topK)
	data, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache decode failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, topK int, result *executor.SearchResult) {
	key := c.Key(plan, topK)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result or runs compute once per key, no
// matter how many callers ask concurrently. cached reports a hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	topK int,
	compute func() (*executor.SearchResult, error),
) (result *executor.SearchResult, cached bool, err error) {
	if r, ok := c.Get(ctx, plan, topK); ok {
		return r, true, nil
	}
	key := c.Key(plan, topK)
	val, err, _ := c.group.Do(key, func() (any, error) {
		r, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, plan, topK, r)
		return r, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result, including those of other corpora.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.DeletePattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Key identifies a query result. Boolean keys ignore term order, repeats and
// topK; ranked keys ignore order but keep repeats, since they change the
// query vector.
func (c *QueryCache) Key(plan *parser.QueryPlan, topK int) string {
	var terms []string
	if plan.Mode == parser.ModeBoolean {
		terms = plan.DistinctTerms()
		topK = 0
	} else {
		terms = append([]string(nil), plan.Terms...)
	}
	sort.Strings(terms)
	raw := fmt.Sprintf("%s|%s|%s|k=%d", c.fingerprint, plan.Mode, strings.Join(terms, "\x1f"), topK)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
