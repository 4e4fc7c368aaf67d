// Package metrics exposes the counters that make the cache auditable in
// production: a missed invalidation shows up as a hit rate that never dips
// after writes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_cache_hits_total",
		Help: "Cache hits by key.",
	}, []string{"key"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_cache_misses_total",
		Help: "Cache misses by key.",
	}, []string{"key"})

	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_cache_invalidations_total",
		Help: "Keys dropped by write-path invalidation.",
	})

	CacheFallthroughs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_cache_fallthrough_total",
		Help: "Reads served from the store because the cache backend errored.",
	})
)
