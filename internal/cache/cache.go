// Package cache is the read-through result cache in front of the fact
// warehouse. Values are JSON-encoded and addressed by a deterministic hash
// of the operation name and its arguments.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ignite/learner-analytics/internal/pkg/logger"
)

// Cache stores opaque values by key.
type Cache interface {
	// Get reports whether key was present and returns its value.
	Get(ctx context.Context, key string) (bool, []byte, error)
	// Set stores value under key for ttl; a non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Nop is a Cache that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (bool, []byte, error) { return false, nil, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error { return nil }

// Remember returns the cached result of op for args, computing and storing
// it with fn on a miss. Cache failures are logged and fall through to fn,
// so a broken cache degrades to direct queries. Errors from fn are not
// cached. Concurrent misses for one key may each call fn.
func Remember[T any](ctx context.Context, c Cache, op string, args Args, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	key, err := Key(op, args)
	if err != nil {
		return zero, fmt.Errorf("cache key for %s: %w", op, err)
	}

	hit, data, err := c.Get(ctx, key)
	switch {
	case err != nil:
		cacheErrors.WithLabelValues(op, "get").Inc()
		logger.Warn("cache get failed", "op", op, "key", key, "error", err)
	case hit:
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			cacheHits.WithLabelValues(op).Inc()
			return v, nil
		}
		cacheErrors.WithLabelValues(op, "decode").Inc()
		logger.Warn("discarding undecodable cache entry", "op", op, "key", key)
	}
	cacheMisses.WithLabelValues(op).Inc()

	v, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	data, err = json.Marshal(v)
	if err != nil {
		cacheErrors.WithLabelValues(op, "encode").Inc()
		logger.Warn("cache encode failed", "op", op, "error", err)
		return v, nil
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		cacheErrors.WithLabelValues(op, "set").Inc()
		logger.Warn("cache set failed", "op", op, "key", key, "error", err)
	}
	return v, nil
}
