package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hulk_cache_hits_total",
			Help: "Total number of page cache hits",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hulk_cache_misses_total",
			Help: "Total number of page cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hulk_cache_size_bytes",
			Help: "Compressed bytes written to the page cache",
		},
		[]string{"layer"}, // "redis"
	)

	// ConditionalRequests tracks requests sent with a validator
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hulk_conditional_requests_total",
			Help: "Total number of requests sent with If-None-Match or If-Modified-Since",
		},
	)

	// NotModified tracks 304 Not Modified responses served from cache
	NotModified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hulk_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hulk_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
