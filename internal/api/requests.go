// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/trackgraph/internal/models"
)

// Request structs carry go-playground/validator tags and are checked with
// validateRequest before the service is called. Date bounds are parsed and
// validated by the service, which owns the accepted formats.

// BubblesRequest holds the query parameters of /bubbles.
//
// Fields:
//   - GroupBy: artist (default) or album, case-insensitive
type BubblesRequest struct {
	Filter  models.FilterKey
	GroupBy string `query:"group_by" validate:"omitempty,oneof=artist album"`
}

// Grouping returns the validated grouping, defaulting to artist.
func (r BubblesRequest) Grouping() models.GroupBy {
	if r.GroupBy == "" {
		return models.GroupByArtist
	}
	return models.GroupBy(r.GroupBy)
}

// HistoricalRequest holds the query parameters of /historical.
//
// Fields:
//   - Limit: rows per table; any integer, clamped by the service
type HistoricalRequest struct {
	Filter models.FilterKey
	Limit  string `query:"limit" validate:"omitempty,max=12,integer"`
}

// LimitOr returns the parsed limit, or def when none was sent.
func (r HistoricalRequest) LimitOr(def int) int {
	if r.Limit == "" {
		return def
	}
	n, err := strconv.Atoi(r.Limit)
	if err != nil {
		return def
	}
	return n
}

func filterFromQuery(r *http.Request) models.FilterKey {
	q := r.URL.Query()
	return models.NewFilterKey(q.Get("start"), q.Get("end"))
}

func parseBubblesRequest(r *http.Request) (BubblesRequest, error) {
	req := BubblesRequest{
		Filter:  filterFromQuery(r),
		GroupBy: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("group_by"))),
	}
	if err := validateRequest(&req); err != nil {
		return BubblesRequest{}, err
	}
	return req, nil
}

func parseHistoricalRequest(r *http.Request) (HistoricalRequest, error) {
	req := HistoricalRequest{
		Filter: filterFromQuery(r),
		Limit:  strings.TrimSpace(r.URL.Query().Get("limit")),
	}
	if err := validateRequest(&req); err != nil {
		return HistoricalRequest{}, err
	}
	return req, nil
}
