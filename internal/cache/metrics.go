package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_hits_total",
		Help: "Result cache hits by operation.",
	}, []string{"op"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_misses_total",
		Help: "Result cache misses by operation.",
	}, []string{"op"})

	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_errors_total",
		Help: "Result cache failures by operation and stage.",
	}, []string{"op", "stage"})
)
