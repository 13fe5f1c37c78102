package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by kind
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacex_cache_hits_total",
			Help: "Total number of SpaceX cache hits",
		},
		[]string{"kind"},
	)

	// CacheMisses tracks cache misses by kind
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacex_cache_misses_total",
			Help: "Total number of SpaceX cache misses",
		},
		[]string{"kind"},
	)

	// CacheWrittenBytes tracks bytes written to the cache
	CacheWrittenBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spacex_cache_written_bytes_total",
			Help: "Total bytes written to the SpaceX cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacex_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
