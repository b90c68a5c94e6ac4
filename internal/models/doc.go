// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package models defines the data structures shared across TrackGraph.

It is the single source of truth for the listening-history event row, the
filter key used to slice a dataset, the bubble and historical payloads served
over HTTP, the derived lookup index built alongside every aggregation, and the
catalog entity objects kept in the metadata store.

Key Components:

  - ListeningEvent: one row of normalized listening history
  - FilterKey: optional [start, end) date bounds for a request
  - BubbleItem / BubbleResponse: grouped play-time summaries
  - HistoricalResponse: top-N artist, album and track tables
  - DerivedIndex: artist/album/track lookup maps for hydration
  - Entity: catalog track or artist object as cached and served
  - Error classes: ErrInvalidInput, ErrUpstream, ErrNotConfigured,
    ErrDatasetUnavailable

Thread Safety:

Models carry no synchronization. Payloads are treated as immutable once they
are stored in a response cache; callers must not mutate a cached value.
*/
package models
