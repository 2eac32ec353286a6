// Package metrics provides the centralized Prometheus metrics registry
// for the LAVA client. The metrics themselves are defined in the
// packages that record them (pagination, lava) to avoid circular
// dependencies.
//
// This package documents all available metrics in one place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the LAVA client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Pagination Metrics (pkg/pagination):
//   - lava_pages_fetched_total{endpoint} (Counter): Pages fetched by endpoint
//   - lava_page_fetch_errors_total{reason} (Counter): Page fetch failures by reason
//     (request, status, decode, redirect)
//   - lava_redirects_total (Counter): HTTP redirects followed during page fetches
//
// Tag Cache Metrics (pkg/lava):
//   - lava_tag_cache_hits_total (Counter): Tag lookups answered from the cache
//   - lava_tag_cache_misses_total (Counter): Tag lookups that missed the cache
//   - lava_tag_refreshes_total (Counter): Full refreshes of the tag cache
//
// Example Prometheus Queries:
//
//   # Page fetch error rate
//   sum(rate(lava_page_fetch_errors_total[5m])) /
//   sum(rate(lava_pages_fetched_total[5m]))
//
//   # Tag cache hit rate
//   rate(lava_tag_cache_hits_total[5m]) /
//   (rate(lava_tag_cache_hits_total[5m]) + rate(lava_tag_cache_misses_total[5m]))
//
//   # Redirects per page fetch
//   rate(lava_redirects_total[5m]) / rate(lava_pages_fetched_total[5m])
