package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	gets   int
}

func newMemBackend() *memBackend { return &memBackend{data: map[string][]byte{}} }

func (m *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memBackend) DeletePattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func plan(t *testing.T, raw string, mode parser.Mode) *parser.QueryPlan {
	t.Helper()
	p, err := parser.Parse(raw, mode)
	require.NoError(t, err)
	return p
}

func TestKeyNormalization(t *testing.T) {
	c := New(newMemBackend(), time.Minute, "fp-1", nil)

	assert.Equal(t,
		c.Key(plan(t, "cat dog", parser.ModeBoolean), 10),
		c.Key(plan(t, "dog cat cat", parser.ModeBoolean), 3))
	assert.Equal(t,
		c.Key(plan(t, "cat dog", parser.ModeRanked), 10),
		c.Key(plan(t, "Dogs cat", parser.ModeRanked), 10))
	assert.NotEqual(t,
		c.Key(plan(t, "cat dog", parser.ModeRanked), 10),
		c.Key(plan(t, "cat dog dog", parser.ModeRanked), 10))
	assert.NotEqual(t,
		c.Key(plan(t, "cat dog", parser.ModeRanked), 10),
		c.Key(plan(t, "cat dog", parser.ModeRanked), 5))
	assert.NotEqual(t,
		c.Key(plan(t, "cat dog", parser.ModeRanked), 10),
		c.Key(plan(t, "cat dog", parser.ModeBoolean), 10))

	other := New(newMemBackend(), time.Minute, "fp-2", nil)
	assert.NotEqual(t,
		c.Key(plan(t, "cat", parser.ModeRanked), 1),
		other.Key(plan(t, "cat", parser.ModeRanked), 1))
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemBackend(), time.Minute, "fp", nil)
	p := plan(t, "cat dog", parser.ModeRanked)
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return &executor.SearchResult{Query: "cat dog", Mode: "ranked", TotalHits: 3}, nil
	}

	r, cached, err := c.GetOrCompute(context.Background(), p, 10, compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, r.TotalHits)

	r, cached, err = c.GetOrCompute(context.Background(), p, 10, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 3, r.TotalHits)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New(newMemBackend(), time.Minute, "fp", nil)
	p := plan(t, "cat", parser.ModeBoolean)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), p, 0, func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get(context.Background(), p, 0)
	assert.False(t, ok)
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemBackend(), time.Minute, "fp", nil)
	p := plan(t, "cat", parser.ModeRanked)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), p, 5, func() (*executor.SearchResult, error) {
				calls.Add(1)
				<-release
				return &executor.SearchResult{Query: "cat"}, nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackendErrorIsMiss(t *testing.T) {
	b := newMemBackend()
	b.getErr = errors.New("connection reset")
	c := New(b, time.Minute, "fp", nil)
	_, ok := c.Get(context.Background(), plan(t, "cat", parser.ModeRanked), 1)
	assert.False(t, ok)
	_, misses := c.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestInvalidate(t *testing.T) {
	b := newMemBackend()
	c := New(b, time.Minute, "fp", nil)
	c.Set(context.Background(), plan(t, "cat", parser.ModeRanked), 1, &executor.SearchResult{})
	c.Set(context.Background(), plan(t, "dog", parser.ModeBoolean), 0, &executor.SearchResult{})
	b.data["unrelated"] = []byte("x")

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, b.data, "unrelated")
}

func TestGuardStopsCallingFailingBackend(t *testing.T) {
	b := newMemBackend()
	b.getErr = errors.New("connection reset")
	g := Guard(b, time.Second, resilience.BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour})
	c := New(g, time.Minute, "fp", nil)
	p := plan(t, "cat", parser.ModeRanked)

	for i := 0; i < 5; i++ {
		_, ok := c.Get(context.Background(), p, 1)
		assert.False(t, ok)
	}
	assert.Equal(t, 2, b.gets)

	_, _, err := g.Get(context.Background(), "k")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	n, err := g.DeletePattern(context.Background(), keyPrefix+"*")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGuardPassesThrough(t *testing.T) {
	g := Guard(newMemBackend(), time.Second, resilience.BreakerConfig{})
	require.NoError(t, g.Set(context.Background(), "k", []byte("v"), time.Minute))
	v, found, err := g.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), v)
}
