package facts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analytics_fact_query_duration_seconds",
		Help:    "Duration of fact warehouse queries.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"dialect"})

	queryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_fact_query_errors_total",
		Help: "Fact warehouse queries that failed.",
	}, []string{"dialect"})
)
