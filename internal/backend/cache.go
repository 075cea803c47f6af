package backend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/metrics"
	"github.com/geochange/landchange/schema"
)

// currentCacheVersion defines the version of the cached value encoding.
const currentCacheVersion = 1

// cacheMaxAge is how long a stored result stays valid.
const cacheMaxAge = 7 * 24 * time.Hour

// sessionScopedOps name nodes whose answer can change between initializations: raster and
// model handles live only as long as the remote session, and assets are user-editable.
var sessionScopedOps = []string{schema.OpRef, schema.OpAsset, schema.OpAssetInfo}

// CachingBackend persists numeric results in a durable store keyed by the expression fingerprint.
// Only graphs built purely from dataset ids and inline geometry are stored; everything else
// goes straight to the next backend so that each initialization sees current remote state.
type CachingBackend struct {
	next  contract.ComputeBackend
	store contract.CacheStore
	now   func() time.Time
}

var _ contract.ComputeBackend = &CachingBackend{} // Compile-time check

// NewCachingBackend wraps next with the durable store.
func NewCachingBackend(next contract.ComputeBackend, store contract.CacheStore) *CachingBackend {
	return &CachingBackend{next: next, store: store, now: time.Now}
}

// Execute returns a stored value when fresh, otherwise computes and stores it.
func (c *CachingBackend) Execute(ctx context.Context, expr *schema.Expr) (schema.Value, error) {
	if !Cacheable(expr) {
		return c.next.Execute(ctx, expr)
	}
	key := expr.Fingerprint()
	if v, ok := c.checkCacheHit(key); ok {
		metrics.ResultCacheHitsTotal.Inc()
		return v, nil
	}
	metrics.ResultCacheMissesTotal.Inc()

	v, err := c.next.Execute(ctx, expr)
	if err != nil {
		return schema.Value{}, err
	}
	if v.Numeric() {
		if data, err := json.Marshal(v); err == nil {
			_ = c.store.Set(key, data, currentCacheVersion, c.now().Unix())
		}
	}
	return v, nil
}

// checkCacheHit attempts to retrieve and validate a stored result.
func (c *CachingBackend) checkCacheHit(key string) (schema.Value, bool) {
	data, version, ts, err := c.store.Get(key)
	if err != nil || version != currentCacheVersion {
		return schema.Value{}, false
	}
	if c.now().Sub(time.Unix(ts, 0)) > cacheMaxAge {
		return schema.Value{}, false
	}
	var v schema.Value
	if err := json.Unmarshal(data, &v); err != nil || !v.Numeric() {
		return schema.Value{}, false
	}
	return v, true
}

// Cacheable reports whether the result of expr may outlive the initialization that asked for it.
func Cacheable(expr *schema.Expr) bool {
	for _, op := range sessionScopedOps {
		if expr.Find(op) != nil {
			return false
		}
	}
	return true
}
