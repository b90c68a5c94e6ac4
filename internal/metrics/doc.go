// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package metrics provides Prometheus metrics for TrackGraph.

Collectors are registered with promauto on the default registry and exposed
at /metrics:

	curl http://localhost:8000/metrics

# Available Metrics

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests

Dataset:
  - trackgraph_dataset_version
  - trackgraph_dataset_rows
  - trackgraph_dataset_replacements_total{source}
  - trackgraph_dataset_listener_failures_total
  - trackgraph_dataset_downloads_total{result}

Caches:
  - trackgraph_cache_hits_total{cache}, trackgraph_cache_misses_total{cache}
  - trackgraph_cache_invalidations_total{cache}
  - trackgraph_metadata_entries
  - trackgraph_metadata_persist_failures_total{target}

Catalog:
  - trackgraph_catalog_requests_total{kind,result}
  - trackgraph_catalog_request_duration_seconds{kind}
  - trackgraph_catalog_token_refreshes_total{result}
  - circuit_breaker_* {name}

Hydration and prewarm:
  - trackgraph_hydration_lookups_total{entity,outcome}
  - trackgraph_prewarm_jobs_total{outcome}
  - trackgraph_prewarm_queue_depth
*/
package metrics
