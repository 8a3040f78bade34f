package matcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolveHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matcache_resolve_hits_total",
		Help: "Total number of resolves served from the cached inverse",
	})

	resolveMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matcache_resolve_misses_total",
		Help: "Total number of resolves that invoked the inversion primitive",
	})

	inversionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matcache_inversion_failures_total",
		Help: "Total number of inversions rejected as non-square or singular",
	})

	inversionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matcache_inversion_duration_seconds",
		Help:    "Time spent in the matrix inversion primitive",
		Buckets: prometheus.DefBuckets,
	})
)
