// Package metrics exposes the Prometheus registry shared by the githulk
// packages. The collectors themselves live next to the code that updates
// them (client, cache, pagination, ratelimit) and register through promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by githulk.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry collected.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - hulk_rate_limit_remaining{credential} (Gauge): Requests left in the window per credential fingerprint
//   - hulk_rate_limit_blocks_total (Counter): Requests blocked because the window is exhausted
//   - hulk_rate_limit_throttles_total (Counter): Requests delayed because the window is running low
//
// Cache Metrics (pkg/cache):
//   - hulk_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - hulk_cache_misses_total (Counter): Cache misses
//   - hulk_cache_size_bytes{layer="redis"} (Gauge): Compressed bytes written to the cache
//   - hulk_conditional_requests_total (Counter): Requests sent with If-None-Match or If-Modified-Since
//   - hulk_304_responses_total (Counter): 304 Not Modified responses served from cache
//   - hulk_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pagination Metrics (pkg/pagination):
//   - hulk_pages_fetched_total (Counter): Pages fetched
//   - hulk_pagination_sequences_total{outcome} (Counter): Finished sequences by outcome (complete, error)
//   - hulk_pagination_pages_per_sequence (Histogram): Pages needed per sequence
//
// Request Metrics (pkg/client):
//   - hulk_requests_total{resource, status} (Counter): Requests by top-level resource and HTTP status
//   - hulk_request_duration_seconds{resource} (Histogram): Request duration by resource
//   - hulk_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - hulk_retries_total{error_class} (Counter): Retry attempts by error class
//   - hulk_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - hulk_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(hulk_cache_hits_total[5m])) /
//   (sum(rate(hulk_cache_hits_total[5m])) + sum(rate(hulk_cache_misses_total[5m])))
//
//   # Credentials close to exhaustion
//   hulk_rate_limit_remaining < 100
//
//   # Request Error Rate
//   rate(hulk_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(hulk_request_duration_seconds_bucket[5m]))
//
//   # Average pages per call
//   rate(hulk_pages_fetched_total[5m]) / rate(hulk_pagination_sequences_total[5m])
