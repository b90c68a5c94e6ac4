// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package api

import (
	"net/http"

	"github.com/tomtom215/trackgraph/internal/service"
)

// TracksBatch handles GET /api/v1/tracks/batch?ids=a,b.
func (h *Handler) TracksBatch(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.TracksBatch(r.Context(), service.ParseIDs(r.URL.Query().Get("ids")))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, resp)
}

// ArtistsBatch handles GET /api/v1/artists/batch?ids=a,b.
func (h *Handler) ArtistsBatch(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.ArtistsBatch(r.Context(), service.ParseIDs(r.URL.Query().Get("ids")))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, resp)
}
