// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package models

import "errors"

// Error classes. Components wrap these with fmt.Errorf("%w: ...") and the
// HTTP layer maps them to status codes with errors.Is.
var (
	// ErrInvalidInput marks caller mistakes: bad dates, bad uploads,
	// unknown grouping, missing columns.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream marks a failed call to the external catalog: transport
	// error, timeout or non-2xx status.
	ErrUpstream = errors.New("catalog upstream error")

	// ErrNotConfigured indicates catalog credentials are absent.
	ErrNotConfigured = errors.New("catalog credentials not configured")

	// ErrDatasetUnavailable indicates no listening-history source could be resolved.
	ErrDatasetUnavailable = errors.New("listening history dataset unavailable")
)
