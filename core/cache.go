package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/geochange/landchange/internal/metrics"
	"github.com/geochange/landchange/schema"
)

// Operation names used in cache keys.
const (
	opComposite      = "composite"
	opIndices        = "indices"
	opClassification = "classification"
	opAreas          = "areas"
	opChange         = "change"
	opClimate        = "climate"
)

// CacheKey identifies one memoized result: (operation, year or year pair, parameters).
type CacheKey struct {
	Op     string
	Years  string
	Params string
}

// NewCacheKey builds a key. Year order is kept, so (a, b) and (b, a) differ.
func NewCacheKey(op, params string, years ...schema.AnalysisYear) CacheKey {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = y.String()
	}
	return CacheKey{Op: op, Years: strings.Join(parts, "->"), Params: params}
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s[%s]", k.Op, k.Years)
}

type cacheEntry struct {
	done  chan struct{}
	value any
	err   error
}

// AnalysisCache memoizes results for the lifetime of one session. It never evicts;
// a new session starts with a new cache.
type AnalysisCache struct {
	mu      sync.Mutex
	entries map[CacheKey]*cacheEntry

	hits   atomic.Int64
	misses atomic.Int64
}

// NewAnalysisCache returns an empty cache.
func NewAnalysisCache() *AnalysisCache {
	return &AnalysisCache{entries: make(map[CacheKey]*cacheEntry)}
}

// CacheStats reports hit and miss counts.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Stats returns the current counters.
func (c *AnalysisCache) Stats() CacheStats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}

// GetOrCompute returns the memoized value of key or runs producer once to fill it.
// Concurrent callers of the same key wait for the in-flight producer. A failed producer
// is not memoized: its waiters receive the error and the next call runs producer again.
func GetOrCompute[T any](ctx context.Context, c *AnalysisCache, key CacheKey, producer func(context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		select {
		case <-e.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		if e.err != nil {
			return zero, e.err
		}
		c.hits.Add(1)
		metrics.AnalysisCacheHitsTotal.Inc()
		v, ok := e.value.(T)
		if !ok {
			return zero, fmt.Errorf("cache entry %s holds %T", key, e.value)
		}
		return v, nil
	}
	e := &cacheEntry{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	c.misses.Add(1)
	metrics.AnalysisCacheMissesTotal.Inc()

	// Waiters are released even when producer panics; the panic still reaches the caller.
	finished := false
	defer func() {
		if !finished {
			e.err = fmt.Errorf("computing %s panicked", key)
			c.forget(key, e)
			close(e.done)
		}
	}()

	v, err := producer(ctx)
	finished = true
	e.value, e.err = v, err
	if err != nil {
		c.forget(key, e)
	}
	close(e.done)
	return v, err
}

// forget drops e unless a newer entry already replaced it.
func (c *AnalysisCache) forget(key CacheKey, e *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] == e {
		delete(c.entries, key)
	}
}
