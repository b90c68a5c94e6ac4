// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package api

import (
	"io"
	"net/http"

	"github.com/tomtom215/trackgraph/internal/logging"
)

// Root reports that the process is serving.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, `{"status":"ok"}`+"\n"); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write liveness response")
	}
}

// Healthz is the plain-text liveness check. It never touches the dataset.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, "ok\n"); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write liveness response")
	}
}

// MethodNotAllowed answers routed paths hit with the wrong verb.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
}

// NotFound answers unrouted paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).NotFound("Not found")
}
