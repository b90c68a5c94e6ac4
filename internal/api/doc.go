// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package api provides the HTTP REST API layer for TrackGraph.

Key Components:

  - Router: chi route table and middleware stack
  - Handler: request handlers delegating to the service layer
  - Response formatting: standardized JSON envelope with request metadata
  - Error mapping: sentinel error classes to HTTP status codes
  - CORS and rate limiting: go-chi/cors and go-chi/httprate

Endpoints (/api/v1/):

  - summary, bubbles, historical: aggregations over the active dataset,
    filtered by optional start and end dates
  - history, history/upload, history/default: dataset inspection and
    replacement
  - tracks/batch, artists/batch: catalog metadata by id, cache first

Liveness is served on / and /healthz, prometheus metrics on /metrics.

Response Format:

All /api/v1 endpoints return the same envelope:

	{
	  "success": true,
	  "data": { ... },
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 4}
	}

Errors set success to false and fill error with a machine-readable code:

	ErrInvalidInput        400 BAD_REQUEST
	ErrDatasetUnavailable  404 NOT_FOUND
	ErrUpstream            502 EXTERNAL_SERVICE_FAILED
	ErrNotConfigured       503 SERVICE_UNAVAILABLE
	anything else          500 INTERNAL_ERROR
*/
package api
