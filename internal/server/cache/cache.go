// Package cache is a Redis-backed cache for serialized query responses.
// Concurrent misses for the same key are collapsed through singleflight
// so a popular query computes once. A refit invalidates everything.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/bookshelf-ai/recommender/pkg/config"
	"github.com/bookshelf-ai/recommender/pkg/metrics"
	pkgredis "github.com/bookshelf-ai/recommender/pkg/redis"
)

const keyPrefix = "rec:"

// QueryCache caches marshaled JSON responses keyed by operation, query,
// and limit.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	m      *metrics.Metrics
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New builds a QueryCache. The metrics handle may be nil.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		m:      m,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached payload for the operation and query, if any.
func (c *QueryCache) Get(ctx context.Context, op, query string, limit int) ([]byte, bool) {
	key := c.buildKey(op, query, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "op", op, "query", query, "key", key)
	return []byte(data), true
}

// Set stores a payload under the operation and query.
func (c *QueryCache) Set(ctx context.Context, op, query string, limit int, payload []byte) {
	key := c.buildKey(op, query, limit)
	if err := c.client.Set(ctx, key, payload, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached payload or computes, stores, and
// returns it. The boolean reports whether the payload came from cache.
// Concurrent callers with the same key share one compute.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	op, query string,
	limit int,
	computeFn func() ([]byte, error),
) ([]byte, bool, error) {
	if payload, ok := c.Get(ctx, op, query, limit); ok {
		return payload, true, nil
	}
	key := c.buildKey(op, query, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if payload, ok := c.Get(ctx, op, query, limit); ok {
			return payload, nil
		}
		payload, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, op, query, limit, payload)
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// Invalidate drops every cached response. Called after a refit so stale
// recommendations never outlive the snapshot they were computed from.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counts since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.m != nil {
		c.m.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.m != nil {
		c.m.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(op, query string, limit int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	raw := fmt.Sprintf("%s:%s:limit=%d", op, normalized, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
