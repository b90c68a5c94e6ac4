// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package api

import (
	"net/http"
)

// Summary handles GET /api/v1/summary?start&end.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Summary(r.Context(), filterFromQuery(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, resp)
}

// Bubbles handles GET /api/v1/bubbles?group_by&start&end.
func (h *Handler) Bubbles(w http.ResponseWriter, r *http.Request) {
	req, err := parseBubblesRequest(r)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	resp, err := h.svc.Bubbles(r.Context(), req.Filter, req.Grouping())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, resp)
}

// Historical handles GET /api/v1/historical?start&end&limit.
func (h *Handler) Historical(w http.ResponseWriter, r *http.Request) {
	req, err := parseHistoricalRequest(r)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	resp, err := h.svc.Historical(r.Context(), req.Filter, req.LimitOr(h.svc.DefaultHistoricalLimit()))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, resp)
}
