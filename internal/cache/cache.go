package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/hdx-age-api/internal/platform/metrics"
)

// DefaultTTL is how long cacheable responses live unless configured otherwise.
const DefaultTTL = time.Hour

// ComputeFunc produces the value to cache. It must be JSON-serializable.
type ComputeFunc func(ctx context.Context) (any, error)

// Cache is a read-through cache of serialized JSON values.
//
// Concurrent misses for the same key may each compute; the last write wins.
// Invalidations are immediately visible: a computation that began before a
// Delete or Clear completed does not store its result.
type Cache struct {
	store      Store
	defaultTTL time.Duration
	logger     *slog.Logger

	// epoch advances on every invalidation. Writers hold mu for reading and
	// invalidations hold it for writing, so an epoch check and the write
	// that follows it cannot straddle a Delete or Clear.
	mu    sync.RWMutex
	epoch uint64
}

// New creates a Cache on top of store. A non-positive defaultTTL means DefaultTTL.
func New(store Store, defaultTTL time.Duration, logger *slog.Logger) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		store:      store,
		defaultTTL: defaultTTL,
		logger:     logger.With("component", "response_cache"),
	}
}

// DefaultTTL returns the TTL used when callers pass zero.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// GetOrCompute returns the cached bytes for key and true, or runs compute,
// caches its JSON encoding for ttl, and returns it with false. Errors from
// compute are returned as-is and nothing is cached. A failing backend read
// is logged and treated as a miss.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, bool, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	value, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed, recomputing", "key", key, "error", err)
	case ok:
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		c.logger.Debug("cache hit", "key", key)
		return value, true, nil
	default:
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	epoch := c.currentEpoch()

	result, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode cached value: %w", err)
	}

	c.storeIfCurrent(ctx, key, encoded, ttl, epoch)
	return encoded, false, nil
}

// Memoize caches compute under a key derived from the function name and
// its arguments rather than from the request.
func (c *Cache) Memoize(ctx context.Context, name string, ttl time.Duration, compute ComputeFunc, args ...any) ([]byte, bool, error) {
	return c.GetOrCompute(ctx, MemoKey(name, args...), ttl, compute)
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete cache key %q: %w", key, err)
	}
	metrics.CacheInvalidationsTotal.WithLabelValues("delete").Inc()
	c.logger.Info("cache key deleted", "key", key)
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	metrics.CacheInvalidationsTotal.WithLabelValues("clear").Inc()
	c.logger.Info("cache cleared")
	return nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// storeIfCurrent writes the value unless an invalidation happened since epoch.
// Write failures are logged; the caller still has the computed value.
func (c *Cache) storeIfCurrent(ctx context.Context, key string, value []byte, ttl time.Duration, epoch uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.epoch != epoch {
		c.logger.Debug("cache invalidated during computation, not storing", "key", key)
		return
	}

	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	c.logger.Debug("cache miss stored", "key", key, "ttl", ttl)
}
