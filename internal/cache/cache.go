// Package cache implements the two-tier (memory + disk) cache used for
// page-metadata lookups and story card images. Both tiers are best-effort
// enrichment: lookups never surface errors, only presence or absence.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a persisted entry stays live.
const DefaultTTL = 24 * time.Hour

// DiskTier is the persistent layer beneath the memory tier. Implemented by
// store.CacheTier; entries carry their storage time for TTL checks.
type DiskTier interface {
	Get(key string) (payload []byte, storedAt time.Time, ok bool)
	Put(key string, payload []byte, storedAt time.Time) error
	Delete(key string)
	Sweep(cutoff time.Time) int
}

// FetchFunc produces the value for a missing key.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Dual is a generic two-tier cache: a bounded LRU memory tier over a
// persistent disk tier with TTL expiry, plus single-flight de-duplication of
// concurrent fetches for the same key.
type Dual[V any] struct {
	mem    *lru.Cache[string, V]
	disk   DiskTier
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger

	now func() time.Time
}

// New creates a cache with the given memory capacity over disk. A nil disk
// tier leaves the cache memory-only.
func New[V any](capacity int, disk DiskTier, logger *slog.Logger) (*Dual[V], error) {
	if logger == nil {
		logger = slog.Default()
	}
	mem, err := lru.New[string, V](capacity)
	if err != nil {
		return nil, err
	}
	return &Dual[V]{
		mem:    mem,
		disk:   disk,
		ttl:    DefaultTTL,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Get checks the memory tier, then the disk tier. A disk hit younger than
// the TTL is promoted into memory; anything older is treated as absent.
func (c *Dual[V]) Get(key string) (V, bool) {
	if v, ok := c.mem.Get(key); ok {
		return v, true
	}

	var zero V
	if c.disk == nil {
		return zero, false
	}

	payload, storedAt, ok := c.disk.Get(key)
	if !ok || c.now().Sub(storedAt) >= c.ttl {
		return zero, false
	}

	var v V
	if err := json.Unmarshal(payload, &v); err != nil {
		c.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		c.disk.Delete(key)
		return zero, false
	}

	c.mem.Add(key, v)
	return v, true
}

// GetOrFetch returns the cached value for key, or fetches it. Concurrent
// calls for the same key share one in-flight fetch; the marker is cleared
// on completion either way, so a failed fetch can be retried later. Fetch
// failures are absorbed and reported as absence.
//
// The fetch runs detached from the caller's cancellation: a key is a shared
// resource, and one caller going away must not fail the fetch for the rest.
func (c *Dual[V]) GetOrFetch(ctx context.Context, key string, fetch FetchFunc[V]) (V, bool) {
	if v, ok := c.Get(key); ok {
		return v, true
	}

	fetchCtx := context.WithoutCancel(ctx)
	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have completed while we queued.
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.put(key, v)
		return v, nil
	})

	var zero V
	if err != nil {
		c.logger.Debug("cache fetch failed", "key", key, "error", err)
		return zero, false
	}
	return res.(V), true
}

// put writes both tiers.
func (c *Dual[V]) put(key string, v V) {
	c.mem.Add(key, v)

	if c.disk == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := c.disk.Put(key, payload, c.now()); err != nil {
		c.logger.Warn("failed to persist cache entry", "key", key, "error", err)
	}
}

// ClearExpired sweeps the disk tier, removing entries older than the TTL.
// Invoked opportunistically at process start.
func (c *Dual[V]) ClearExpired() int {
	if c.disk == nil {
		return 0
	}
	removed := c.disk.Sweep(c.now().Add(-c.ttl))
	if removed > 0 {
		c.logger.Debug("swept expired cache entries", "removed", removed)
	}
	return removed
}
