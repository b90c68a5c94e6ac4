// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Dataset Metrics
	DatasetVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackgraph_dataset_version",
			Help: "Current dataset version (increments on every replacement)",
		},
	)

	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackgraph_dataset_rows",
			Help: "Number of listening events in the active snapshot",
		},
	)

	DatasetReplacements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_dataset_replacements_total",
			Help: "Total number of dataset replacements",
		},
		[]string{"source"}, // "default", "uploaded"
	)

	DatasetListenerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgraph_dataset_listener_failures_total",
			Help: "Total number of version-change listeners that failed or panicked",
		},
	)

	DatasetDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_dataset_downloads_total",
			Help: "Remote history object resolutions",
		},
		[]string{"result"}, // "downloaded", "reused", "error"
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_cache_invalidations_total",
			Help: "Total number of bulk cache invalidations",
		},
		[]string{"cache"},
	)

	MetadataEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackgraph_metadata_entries",
			Help: "Number of catalog entities in the metadata store",
		},
	)

	MetadataPersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_metadata_persist_failures_total",
			Help: "Swallowed metadata persistence failures",
		},
		[]string{"target"}, // "local", "remote"
	)

	// Catalog Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_catalog_requests_total",
			Help: "Catalog batch requests by outcome",
		},
		[]string{"kind", "result"}, // kind: tracks, artists; result: success, error, cached
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackgraph_catalog_request_duration_seconds",
			Help:    "Catalog batch request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"kind"},
	)

	CatalogTokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_catalog_token_refreshes_total",
			Help: "Client-credential token refreshes",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Hydration and Prewarm Metrics
	HydrationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_hydration_lookups_total",
			Help: "Metadata lookups during hydration",
		},
		[]string{"entity", "outcome"}, // entity: track, artist; outcome: hit, miss, fetched
	)

	PrewarmJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgraph_prewarm_jobs_total",
			Help: "Prewarm jobs by outcome",
		},
		[]string{"outcome"}, // queued, coalesced, dropped, completed, failed, stale
	)

	PrewarmQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackgraph_prewarm_queue_depth",
			Help: "Prewarm jobs waiting for a worker",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDatasetReplacement updates dataset gauges after a snapshot swap.
func RecordDatasetReplacement(source string, version int64, rows int) {
	DatasetReplacements.WithLabelValues(source).Inc()
	DatasetVersion.Set(float64(version))
	DatasetRows.Set(float64(rows))
}

// RecordCacheLookup counts a hit or miss for the named cache.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
	} else {
		CacheMisses.WithLabelValues(cache).Inc()
	}
}

// RecordCatalogRequest records one catalog batch call.
func RecordCatalogRequest(kind string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	CatalogRequests.WithLabelValues(kind, result).Inc()
	CatalogRequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordHydration adds one hydration pass worth of counters.
func RecordHydration(entity string, hits, misses, fetched int) {
	HydrationLookups.WithLabelValues(entity, "hit").Add(float64(hits))
	HydrationLookups.WithLabelValues(entity, "miss").Add(float64(misses))
	HydrationLookups.WithLabelValues(entity, "fetched").Add(float64(fetched))
}
