// Package metrics exposes the Prometheus registry used by the pricing
// packages. Metrics are declared with promauto next to the code that
// records them; this package only serves them and lists them below.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gatherer is the gatherer served by Handler. promauto registers with the
// default registry, which this gathers.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Catalog client (pkg/catalog):
//   - catalog_requests_total{operation, status} (Counter)
//   - catalog_request_duration_seconds{operation} (Histogram): per attempt
//   - catalog_errors_total{operation, kind} (Counter): final failures
//   - catalog_retries_total{operation, kind} (Counter)
//   - catalog_retry_backoff_seconds{kind} (Histogram)
//   - catalog_retry_exhausted_total{operation, kind} (Counter)
//
// Server-tier caches (pkg/cache), labelled by cache name
// (display, secondary, inventory):
//   - pricing_cache_hits_total{cache} (Counter)
//   - pricing_cache_misses_total{cache} (Counter)
//   - pricing_cache_expirations_total{cache} (Counter): lazy and swept
//   - pricing_cache_evictions_total{cache} (Counter): explicit deletes
//   - pricing_cache_entries{cache} (Gauge)
//
// Resolver (pkg/resolver):
//   - pricing_resolutions_total{source} (Counter): remote, cache, stale, default
//   - pricing_fallbacks_total{kind} (Counter)
//   - pricing_overrides_applied_total (Counter)
//
// HTTP API (internal/api):
//   - pricing_http_requests_total{route, status} (Counter)
//   - pricing_http_request_duration_seconds{route} (Histogram)
//
// Example queries:
//
//	# display cache hit rate
//	sum(rate(pricing_cache_hits_total{cache="display"}[5m])) /
//	(sum(rate(pricing_cache_hits_total{cache="display"}[5m])) +
//	 sum(rate(pricing_cache_misses_total{cache="display"}[5m])))
//
//	# share of lookups answered with default pricing
//	rate(pricing_resolutions_total{source="default"}[5m]) /
//	sum(rate(pricing_resolutions_total[5m]))
//
//	# P95 catalog attempt latency
//	histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
