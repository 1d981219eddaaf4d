// Package pollcache keeps the last good payload per polled endpoint in
// Redis. When a polling cycle fails at the trust boundary, the caller can
// serve the previous good payload instead of failing the cycle outright.
package pollcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	log "github.com/omlabs/trustbound/pkg/logger"
	"github.com/omlabs/trustbound/pkg/safehttp"
)

const keyPrefix = "trustbound:lastgood:"

// Cache stores last-good JSON payloads with a TTL bounding how stale a
// served payload can get.
type Cache struct {
	redis  *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(addr string, db int, password string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       db,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewWithClient(rdb, ttl, logger), nil
}

// NewWithClient wraps an existing Redis client (tests, shared pools).
func NewWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = log.L()
	}
	return &Cache{redis: client, logger: logger, ttl: ttl}
}

// Put records payload as the last good result for endpoint.
func (c *Cache) Put(ctx context.Context, endpoint string, payload json.RawMessage) error {
	if err := c.redis.Set(ctx, keyPrefix+endpoint, []byte(payload), c.ttl).Err(); err != nil {
		c.logger.Warn("pollcache.put_failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return err
	}
	return nil
}

// Get returns the last good payload for endpoint, if one is still fresh.
func (c *Cache) Get(ctx context.Context, endpoint string) (json.RawMessage, bool, error) {
	data, err := c.redis.Get(ctx, keyPrefix+endpoint).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(data), true, nil
}

// Fallback applies the degraded-state policy for one polling cycle: a
// success outcome refreshes the cache and returns its payload; any failure
// outcome serves the last good payload when one exists. The second return
// reports whether a payload (fresh or stale) is available at all.
func (c *Cache) Fallback(ctx context.Context, endpoint string, out safehttp.Outcome) (json.RawMessage, bool) {
	if out.OK() {
		// Refresh best-effort; a cache write failure does not fail the cycle.
		_ = c.Put(ctx, endpoint, out.Payload())
		return out.Payload(), true
	}

	stale, ok, err := c.Get(ctx, endpoint)
	if err != nil {
		c.logger.Warn("pollcache.get_failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	c.logger.Info("pollcache.serving_stale",
		zap.String("endpoint", endpoint),
		zap.String("outcome", string(out.Kind())))
	return stale, true
}

// Close releases the underlying Redis client.
func (c *Cache) Close() error {
	return c.redis.Close()
}
