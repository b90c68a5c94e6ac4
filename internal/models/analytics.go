// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package models

import "strings"

// GroupBy selects the bubble grouping.
type GroupBy string

// Supported groupings.
const (
	GroupByArtist GroupBy = "artist"
	GroupByAlbum  GroupBy = "album"
)

// Other returns the alternate grouping.
func (g GroupBy) Other() GroupBy {
	if g == GroupByAlbum {
		return GroupByArtist
	}
	return GroupByAlbum
}

// TopTrack is one of the most-played tracks inside a bubble.
type TopTrack struct {
	Name  string  `json:"name"`
	Ms    int64   `json:"ms"`
	Hours float64 `json:"hours"`
	Plays int     `json:"plays"`
}

// BubbleItem is one aggregated group in a bubble view.
//
// For artist grouping ID is the artist name. For album grouping ID is
// "artist::album" so albums sharing a title stay distinct.
type BubbleItem struct {
	ID                    string     `json:"id"`
	Label                 string     `json:"label"`
	Artist                string     `json:"artist,omitempty"`
	ValueMs               int64      `json:"value_ms"`
	ValueHours            float64    `json:"value_hours"`
	ValuePct              float64    `json:"value_pct"`
	Plays                 int        `json:"plays"`
	DistinctTracks        int        `json:"distinct_tracks"`
	TopTracks             []TopTrack `json:"top_tracks"`
	IDs                   []string   `json:"ids"`
	ImageURL              string     `json:"image_url,omitempty"`
	RepresentativeTrackID string     `json:"representative_track_id,omitempty"`
}

// DerivedIndex holds the lookup maps rebuilt for every (version, filter).
type DerivedIndex struct {
	ArtistAlbumToID    map[string]string `json:"artist_album_to_id"`
	IDToArtistAlbum    map[string]string `json:"id_to_artist_album"`
	TrackArtistToAlbum map[string]string `json:"track_artist_to_album"`
}

// PairKey joins two names the way DerivedIndex keys are built.
func PairKey(a, b string) string {
	return a + "::" + b
}

// SplitPairKey reverses PairKey. ok is false when the separator is absent.
func SplitPairKey(key string) (a, b string, ok bool) {
	return strings.Cut(key, "::")
}

// HydrateStats counts metadata cache behavior during one hydration pass.
type HydrateStats struct {
	TracksCacheHits    int `json:"tracks_cache_hits"`
	TracksCacheMisses  int `json:"tracks_cache_misses"`
	TracksFetched      int `json:"tracks_fetched"`
	ArtistsCacheHits   int `json:"artists_cache_hits"`
	ArtistsCacheMisses int `json:"artists_cache_misses"`
	ArtistsFetched     int `json:"artists_fetched"`
}

// Timings records per-stage durations of a computed payload.
type Timings struct {
	FilterMs  int64         `json:"filter_ms"`
	IndexMs   int64         `json:"index_ms"`
	GroupMs   int64         `json:"group_ms"`
	HydrateMs int64         `json:"hydrate_ms,omitempty"`
	TotalMs   int64         `json:"total_ms"`
	Hydrate   *HydrateStats `json:"hydrate_stats,omitempty"`
}

// SummaryResponse is the totals payload for a filter window.
type SummaryResponse struct {
	TotalMs    int64   `json:"total_ms"`
	TotalHours float64 `json:"total_hours"`
	TotalPlays int     `json:"total_plays"`
	Start      string  `json:"start,omitempty"`
	End        string  `json:"end,omitempty"`
	Timings    Timings `json:"timings"`
}

// BubbleResponse is the grouped bubble payload.
type BubbleResponse struct {
	GroupBy    GroupBy      `json:"group_by"`
	TotalMs    int64        `json:"total_ms"`
	TotalHours float64      `json:"total_hours"`
	TotalPlays int          `json:"total_plays"`
	Items      []BubbleItem `json:"items"`
	DerivedIndex
	Timings Timings `json:"timings"`
}

// HistoricalRow is one row of a top-N table. DistinctTracks is zero for
// track rows; TrackID is set only for track rows.
type HistoricalRow struct {
	Name           string  `json:"name"`
	TrackID        string  `json:"track_id,omitempty"`
	MsPlayed       int64   `json:"ms_played"`
	Hours          float64 `json:"hours"`
	Plays          int     `json:"plays"`
	DistinctTracks int     `json:"distinct_tracks,omitempty"`
}

// HistoricalResponse is the top-N tables payload.
type HistoricalResponse struct {
	Artists []HistoricalRow `json:"artists"`
	Albums  []HistoricalRow `json:"albums"`
	Tracks  []HistoricalRow `json:"tracks"`
	Limit   int             `json:"limit"`
	DerivedIndex
	Timings Timings `json:"timings"`
}
