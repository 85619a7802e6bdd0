// Package cache provides a cache-aside layer over a kv.Store.
// Values are wrapped in a JSON envelope carrying the write time and TTL;
// the store-native expiry is the only staleness bound, the envelope
// timestamp is informational and not enforced on read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/manny2375/2020realtorsblue-sub000/internal/kv"
)

// DefaultTTL applies when Set is called with a zero TTL.
const DefaultTTL = time.Hour

// Prometheus metrics for cache effectiveness
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtorsblue_cache_hits_total",
		Help: "Total number of cache reads served from the key-value store",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtorsblue_cache_misses_total",
		Help: "Total number of cache reads that fell through to the durable store",
	})
)

// Entry is the stored envelope for a cached value.
type Entry struct {
	Value           json.RawMessage `json:"value"`
	WrittenAtMillis int64           `json:"writtenAtMillis"`
	TTLSeconds      int             `json:"ttlSeconds"`
}

// Cache implements get-or-populate caching on top of a key-value store.
// A malformed stored entry is treated as a miss, never as an error: the
// next populate overwrites it, trading a duplicate compute for robustness.
type Cache struct {
	store kv.Store

	// now is swappable so tests can control the envelope timestamp.
	now func() time.Time
}

// New creates a Cache over the given store.
func New(store kv.Store) *Cache {
	return &Cache{
		store: store,
		now:   time.Now,
	}
}

// SetClock overrides the cache's clock. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Set wraps value in an Entry envelope and stores it with the store-native
// TTL equal to ttl.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	entry := Entry{
		Value:           raw,
		WrittenAtMillis: c.now().UnixMilli(),
		TTLSeconds:      int(ttl / time.Second),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.store.Put(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Get reads key into dest. Returns false on absence, on store failure, and
// on deserialization failure; the last two are logged at warn and reported
// as misses so a flaky or corrupted cache never blocks the caller.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if err != kv.ErrNotFound {
			slog.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		cacheMisses.Inc()
		return false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("malformed cache entry, treating as miss", "key", key, "error", err)
		cacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		slog.Warn("malformed cache value, treating as miss", "key", key, "error", err)
		cacheMisses.Inc()
		return false
	}
	cacheHits.Inc()
	return true
}

// Delete removes key from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// DeletePrefix removes every key under prefix, for invalidating families
// of derived keys such as filtered listings.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := c.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", key, err)
		}
	}
	return nil
}

// GetOrPopulate reads key into dest; on a miss it calls fill, stores the
// result under key with ttl, and decodes it into dest. A failed cache write
// after a successful fill is logged, not returned: the value is still served.
func (c *Cache) GetOrPopulate(ctx context.Context, key string, ttl time.Duration, dest any, fill func(ctx context.Context) (any, error)) error {
	if c.Get(ctx, key, dest) {
		return nil
	}

	value, err := fill(ctx)
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("failed to populate cache", "key", key, "error", err)
	}

	// Round-trip through JSON so dest is filled the same way a cache hit
	// would fill it.
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal computed value: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode computed value: %w", err)
	}
	return nil
}
