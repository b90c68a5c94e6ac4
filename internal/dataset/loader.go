// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trackgraph/internal/models"
)

// Format is a supported tabular encoding.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Column names of a listening-history export.
const (
	ColTimestamp   = "ts"
	ColMsPlayed    = "ms_played"
	ColTrackName   = "master_metadata_track_name"
	ColArtistName  = "master_metadata_album_artist_name"
	ColAlbumName   = "master_metadata_album_album_name"
	ColTrackURI    = "spotify_track_uri"
	ColReasonStart = "reason_start"
	ColReasonEnd   = "reason_end"
	ColShuffle     = "shuffle"
	ColSkipped     = "skipped"
)

// RequiredColumns must all be present in an export.
var RequiredColumns = []string{
	ColTimestamp,
	ColMsPlayed,
	ColTrackName,
	ColArtistName,
	ColAlbumName,
	ColTrackURI,
	ColReasonStart,
	ColReasonEnd,
	ColShuffle,
	ColSkipped,
}

// DetectFormat picks a format from the file extension, falling back to the
// content type. An unrecognized pair is a validation error.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "csv"):
		return FormatCSV, nil
	case strings.Contains(ct, "json"):
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unsupported file type. Upload a CSV or JSON export", models.ErrInvalidInput)
}

// Parse decodes and normalizes a listening-history export.
//
// Rows without a usable timestamp or play duration are dropped, as are rows
// missing both track and artist names. Missing names become "Unknown".
func Parse(r io.Reader, format Format) (*Snapshot, error) {
	var (
		records []map[string]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatJSON:
		records, err = readJSON(r)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", models.ErrInvalidInput, format)
	}
	if err != nil {
		return nil, err
	}

	events := make([]models.ListeningEvent, 0, len(records))
	for _, rec := range records {
		if ev, ok := normalizeRecord(rec); ok {
			events = append(events, ev)
		}
	}
	return NewSnapshot(events), nil
}

// readCSV returns one map per data row keyed by trimmed header names.
func readCSV(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file has no header row", models.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: could not parse CSV: %v", models.ErrInvalidInput, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if err := checkColumns(header); err != nil {
		return nil, err
	}

	var out []map[string]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: could not parse CSV: %v", models.ErrInvalidInput, err)
		}
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// readJSON accepts an array of objects. Columns are the union of keys.
func readJSON(r io.Reader) ([]map[string]string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: could not parse JSON: %v", models.ErrInvalidInput, err)
	}

	seen := make(map[string]struct{})
	out := make([]map[string]string, 0, len(raw))
	for _, obj := range raw {
		rec := make(map[string]string, len(obj))
		for k, v := range obj {
			k = strings.TrimSpace(k)
			seen[k] = struct{}{}
			rec[k] = jsonScalar(v)
		}
		out = append(out, rec)
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	if err := checkColumns(cols); err != nil {
		return nil, err
	}
	return out, nil
}

func jsonScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func checkColumns(cols []string) error {
	present := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		present[c] = struct{}{}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing expected columns: %s", models.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func normalizeRecord(rec map[string]string) (models.ListeningEvent, bool) {
	ts, err := ParseTime(rec[ColTimestamp])
	if err != nil {
		return models.ListeningEvent{}, false
	}
	rawMs := strings.TrimSpace(rec[ColMsPlayed])
	if rawMs == "" || strings.EqualFold(rawMs, "nan") {
		return models.ListeningEvent{}, false
	}

	track := strings.TrimSpace(rec[ColTrackName])
	artist := strings.TrimSpace(rec[ColArtistName])
	if track == "" && artist == "" {
		return models.ListeningEvent{}, false
	}

	uri := strings.TrimSpace(rec[ColTrackURI])
	return models.ListeningEvent{
		Timestamp:   ts,
		MsPlayed:    parseMs(rawMs),
		TrackName:   orUnknown(track),
		ArtistName:  orUnknown(artist),
		AlbumName:   orUnknown(strings.TrimSpace(rec[ColAlbumName])),
		TrackURI:    uri,
		TrackID:     NormalizeTrackID(uri),
		ReasonStart: strings.TrimSpace(rec[ColReasonStart]),
		ReasonEnd:   strings.TrimSpace(rec[ColReasonEnd]),
		Shuffle:     parseBool(rec[ColShuffle]),
		Skipped:     parseBool(rec[ColSkipped]),
	}, true
}

// parseMs coerces a duration to a non-negative integer. Garbage becomes 0.
func parseMs(s string) int64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int64(f)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "1.0", "yes", "y", "t":
		return true
	default:
		return false
	}
}

func orUnknown(s string) string {
	if s == "" || strings.EqualFold(s, "nan") {
		return models.UnknownValue
	}
	return s
}

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseTime parses an ISO-8601 style timestamp or date. Values without a
// zone are taken as UTC; the result is always UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// NormalizeTrackID strips any catalog URI prefix from a track reference:
// "spotify:track:abc" and "catalog:track:abc" both become "abc". Bare ids
// are returned unchanged, so the function is idempotent.
func NormalizeTrackID(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "nan") {
		return ""
	}
	if i := strings.LastIndexByte(raw, ':'); i >= 0 {
		return raw[i+1:]
	}
	return raw
}
