package settings

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCacheTTL bounds how stale a cached setting value may be. Gated
// features tolerate short staleness; they are read-mostly toggles.
const DefaultCacheTTL = 30 * time.Second

// cacheKeyPrefix namespaces setting keys inside a shared Redis database.
const cacheKeyPrefix = "faultline:setting:"

// Cmdable is the subset of go-redis operations the cache needs. Satisfied by
// [*redis.Client] and by mock implementations for unit testing.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Compile-time interface compliance check.
var _ Cmdable = (*redis.Client)(nil)

// Cache is a Redis read-through layer over a settings [Store] for
// deployments where many frames share one settings table. Cache failures
// degrade to direct store reads; the cache never makes a read fail that the
// store could serve.
//
// A Cache is safe for concurrent use.
type Cache struct {
	store  *Store
	rdb    Cmdable
	ttl    time.Duration
	tracer trace.Tracer
}

// NewCache wraps store with a Redis read-through cache. A non-positive ttl
// uses [DefaultCacheTTL].
func NewCache(store *Store, rdb Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		store:  store,
		rdb:    rdb,
		ttl:    ttl,
		tracer: otel.Tracer(tracerName),
	}
}

// Get returns the value for key, serving from Redis when cached and filling
// the cache from the store on a miss. Redis errors (other than a miss) fall
// through to the store.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "settings.CacheGet",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	cached, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Result()
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	value, err := c.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	// Best effort: a failed fill only costs the next reader a store read.
	_ = c.rdb.Set(ctx, cacheKeyPrefix+key, value, c.ttl).Err()
	return value, nil
}

// Bool reports whether key holds a truthy value, reading through the cache.
// Missing keys are false; store failures also report false, keeping gated
// features disabled when configuration cannot be read.
func (c *Cache) Bool(ctx context.Context, key string) bool {
	value, err := c.Get(ctx, key)
	return err == nil && Truthy(value)
}

// Invalidate drops cached values for the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = cacheKeyPrefix + k
	}
	if err := c.rdb.Del(ctx, prefixed...).Err(); err != nil {
		return wrapError(err, "settings: cache invalidation failed")
	}
	return nil
}

// Snapshot loads a full snapshot directly from the store, bypassing the
// per-key cache. Use it for the explicit snapshot threading model.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	return c.store.Snapshot(ctx)
}
