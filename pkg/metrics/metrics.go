// Package metrics exposes the Prometheus registry shared by the explorer.
// All metrics are defined in their respective packages (spacex, cache,
// scroll, favorites) to maintain modularity and avoid circular dependencies.
//
// This package serves the metrics and documents what is available.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the explorer.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the gathered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/spacex):
//   - spacex_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status ("cached", "network_error")
//   - spacex_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - spacex_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Retry Metrics (pkg/spacex):
//   - spacex_retries_total{error_class} (Counter): Retry attempts by error class
//   - spacex_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - spacex_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Cache Metrics (pkg/cache):
//   - spacex_cache_hits_total{kind} (Counter): Cache hits by response kind
//   - spacex_cache_misses_total{kind} (Counter): Cache misses by response kind
//   - spacex_cache_written_bytes_total (Counter): Bytes written to Redis
//   - spacex_cache_errors_total{operation} (Counter): Cache operation errors
//
// Scroll Metrics (pkg/scroll):
//   - spacex_scroll_triggers_total (Counter): Load-more requests issued
//   - spacex_scroll_suppressed_total{reason} (Counter): Proximity signals ignored (no_more, pending, duplicate)
//   - spacex_scroll_restores_total (Counter): Scroll positions restored after a page arrived
//
// Favorites Metrics (pkg/favorites):
//   - spacex_favorites_changes_total{action} (Counter): Favorites added and removed
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(spacex_cache_hits_total[5m])) /
//   (sum(rate(spacex_cache_hits_total[5m])) + sum(rate(spacex_cache_misses_total[5m])))
//
//   # Upstream Error Rate
//   rate(spacex_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(spacex_request_duration_seconds_bucket[5m]))
//
//   # Duplicate Load-More Signals
//   rate(spacex_scroll_suppressed_total{reason="duplicate"}[5m])
