package search

import (
	"context"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cached memoizes successful queries for a TTL. Failures are not cached.
type Cached struct {
	next  Provider
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCached wraps next with a ristretto cache holding up to maxEntries queries.
func NewCached(next Provider, ttl time.Duration, maxEntries int64) (*Cached, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache, ttl: ttl}, nil
}

// Search returns the cached results for query or asks the wrapped provider.
func (c *Cached) Search(ctx context.Context, query string) ([]Result, error) {
	key := cacheKey(query)
	if v, ok := c.cache.Get(key); ok {
		if results, ok := v.([]Result); ok {
			return results, nil
		}
	}

	results, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		c.cache.SetWithTTL(key, results, 1, c.ttl)
		c.cache.Wait()
	}
	return results, nil
}

// Close releases the cache.
func (c *Cached) Close() {
	c.cache.Close()
}

func cacheKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
