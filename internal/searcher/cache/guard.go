package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/resilience"
)

// guarded bounds every cache read and write by a timeout and stops calling
// the backend while it keeps failing, so a sick Redis turns into fast misses
// instead of slow queries.
type guarded struct {
	next    Backend
	timeout time.Duration
	breaker *resilience.Breaker
}

// Guard wraps next. Invalidation bypasses the breaker: an operator asking
// to clear the cache should see the real backend error.
func Guard(next Backend, timeout time.Duration, cfg resilience.BreakerConfig) Backend {
	return &guarded{
		next:    next,
		timeout: timeout,
		breaker: resilience.NewBreaker("query-cache", cfg),
	}
}

func (g *guarded) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	err = g.breaker.Do(ctx, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, g.timeout, "cache get", func(ctx context.Context) error {
			var err error
			value, found, err = g.next.Get(ctx, key)
			return err
		})
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

func (g *guarded) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Do(ctx, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, g.timeout, "cache set", func(ctx context.Context) error {
			return g.next.Set(ctx, key, value, ttl)
		})
	})
}

func (g *guarded) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	return g.next.DeletePattern(ctx, pattern)
}
