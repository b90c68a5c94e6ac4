// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package middleware provides HTTP middleware shared by the API router.

Key Components:

  - RequestID: UUID request ids propagated into the logging context
  - PrometheusMetrics: request counters and latency histograms labeled by
    chi route pattern, so path parameters and query strings never create
    new series

Both are plain func(http.Handler) http.Handler and plug into chi's r.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Get("/bubbles", handler.Bubbles)
	})
*/
package middleware
