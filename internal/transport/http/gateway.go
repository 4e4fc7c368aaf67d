package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"school-quiz-service/internal/cache"
	"school-quiz-service/internal/metrics"
)

// Gateway is the cache-aware read path: check the cache, fall through to
// the store-backed loader on a miss, populate the cache, return. A cache
// backend failure degrades to a direct store read; it never fails the
// request.
type Gateway struct {
	cache  cache.Cache
	sf     singleflight.Group
	logger *zap.Logger
}

func NewGateway(c cache.Cache, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{cache: c, logger: logger}
}

// readThrough runs the cache-aside protocol for one key. Concurrent misses
// on the same key collapse into a single loader call.
func readThrough[T any](ctx context.Context, g *Gateway, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := g.cache.Get(ctx, key)
	if err == nil {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			metrics.CacheHits.WithLabelValues(key).Inc()
			return value, nil
		}
		// Undecodable payloads are treated as a miss and dropped.
		_ = g.cache.Delete(ctx, key)
	} else if !errors.Is(err, cache.ErrMiss) {
		metrics.CacheFallthroughs.Inc()
		g.logger.Warn("cache read failed, serving from store", zap.String("key", key), zap.Error(err))
		return load(ctx)
	}

	metrics.CacheMisses.WithLabelValues(key).Inc()

	result, err, _ := g.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key meanwhile.
		if raw, err := g.cache.Get(ctx, key); err == nil {
			var value T
			if err := json.Unmarshal(raw, &value); err == nil {
				return value, nil
			}
		}

		value, err := load(ctx)
		if err != nil {
			return zero, err
		}

		payload, err := json.Marshal(value)
		if err != nil {
			return zero, fmt.Errorf("encode cache payload %s: %w", key, err)
		}
		if err := g.cache.Set(ctx, key, payload, ttl); err != nil {
			g.logger.Warn("cache populate failed", zap.String("key", key), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}
