// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/trackgraph/internal/models"
)

// Upload validation messages.
const (
	msgUploadMissing = "Please upload a CSV or JSON export from Spotify."
	msgUploadEmpty   = "Uploaded file is empty."
	msgUploadTooBig  = "Uploaded file exceeds the size limit."
)

// errorClass is the status and code an error maps to.
type errorClass struct {
	status int
	code   string
}

// classify maps a service error to its HTTP representation.
func classify(err error) errorClass {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return errorClass{http.StatusBadRequest, ErrCodeBadRequest}
	case errors.Is(err, models.ErrDatasetUnavailable):
		return errorClass{http.StatusNotFound, ErrCodeNotFound}
	case errors.Is(err, models.ErrUpstream):
		return errorClass{http.StatusBadGateway, ErrCodeExternalServiceFail}
	case errors.Is(err, models.ErrNotConfigured):
		return errorClass{http.StatusServiceUnavailable, ErrCodeServiceUnavailable}
	default:
		return errorClass{http.StatusInternalServerError, ErrCodeInternalError}
	}
}

// clientMessage strips the sentinel prefix from a validation error so the
// caller sees only the detail.
func clientMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{models.ErrInvalidInput, models.ErrDatasetUnavailable} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
