// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package models

import (
	"strings"
	"time"
)

// UnknownValue replaces missing track, artist and album names.
const UnknownValue = "Unknown"

// Dataset source labels.
const (
	SourceUnknown  = "unknown"
	SourceDefault  = "default"
	SourceUploaded = "uploaded"
)

// ListeningEvent is a single normalized play from a listening-history export.
//
// TrackURI keeps the raw catalog URI (for example "spotify:track:abc") and
// TrackID the bare id with any URI prefix removed.
type ListeningEvent struct {
	Timestamp   time.Time `json:"ts"`
	MsPlayed    int64     `json:"ms_played"`
	TrackName   string    `json:"track_name"`
	ArtistName  string    `json:"artist_name"`
	AlbumName   string    `json:"album_name"`
	TrackURI    string    `json:"track_uri,omitempty"`
	TrackID     string    `json:"track_id,omitempty"`
	ReasonStart string    `json:"reason_start,omitempty"`
	ReasonEnd   string    `json:"reason_end,omitempty"`
	Shuffle     bool      `json:"shuffle"`
	Skipped     bool      `json:"skipped"`
}

// FilterKey holds the optional date bounds of a request. Start is inclusive
// and End exclusive. Two keys are the same filter when their trimmed raw
// strings are equal, so FilterKey is usable as a map key.
type FilterKey struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// NewFilterKey trims both bounds.
func NewFilterKey(start, end string) FilterKey {
	return FilterKey{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
}

// IsZero reports whether the key selects the whole dataset.
func (k FilterKey) IsZero() bool {
	return k.Start == "" && k.End == ""
}

// String renders the key for logs and cache labels.
func (k FilterKey) String() string {
	return k.Start + ".." + k.End
}

// DatasetInfo describes the active snapshot.
type DatasetInfo struct {
	Version  int64      `json:"version"`
	Source   string     `json:"source"`
	Rows     int        `json:"rows"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// UploadResult is returned after an uploaded history replaces the dataset.
type UploadResult struct {
	Status string `json:"status"`
	Rows   int    `json:"rows"`
	Source string `json:"source"`
}

// DefaultResult is returned after switching back to the default dataset.
type DefaultResult struct {
	Status     string `json:"status"`
	Rows       int    `json:"rows"`
	Source     string `json:"source"`
	Idempotent bool   `json:"idempotent"`
}
