// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/tomtom215/trackgraph/internal/dataset"
	"github.com/tomtom215/trackgraph/internal/models"
)

type tableRow struct {
	name    string
	trackID string
	ms      int64
	plays   int
	tracks  map[string]struct{}
}

type table struct {
	rows  map[[2]string]*tableRow
	order []*tableRow
}

func newTable() *table {
	return &table{rows: make(map[[2]string]*tableRow)}
}

func (t *table) add(name, trackID string, ev *models.ListeningEvent, distinct bool) {
	k := [2]string{name, trackID}
	r, ok := t.rows[k]
	if !ok {
		r = &tableRow{name: name, trackID: trackID}
		if distinct {
			r.tracks = make(map[string]struct{})
		}
		t.rows[k] = r
		t.order = append(t.order, r)
	}
	r.ms += ev.MsPlayed
	r.plays++
	if r.tracks != nil {
		r.tracks[ev.TrackName] = struct{}{}
	}
}

// top sorts by plays desc, then play time desc, then name, and keeps limit rows.
func (t *table) top(limit int) []models.HistoricalRow {
	slices.SortFunc(t.order, func(a, b *tableRow) int {
		return cmp.Or(
			cmp.Compare(b.plays, a.plays),
			cmp.Compare(b.ms, a.ms),
			cmp.Compare(a.name, b.name),
			cmp.Compare(a.trackID, b.trackID),
		)
	})
	rows := t.order
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]models.HistoricalRow, len(rows))
	for i, r := range rows {
		out[i] = models.HistoricalRow{
			Name:           r.name,
			TrackID:        r.trackID,
			MsPlayed:       r.ms,
			Hours:          ToHours(r.ms),
			Plays:          r.plays,
			DistinctTracks: len(r.tracks),
		}
	}
	return out
}

// ClampLimit bounds a requested table size to [1, HistoricalMaxLimit].
func (e *Engine) ClampLimit(limit int) int {
	return max(1, min(limit, e.cfg.HistoricalMaxLimit))
}

// Historical builds the top artists, albums and tracks of the view.
func (e *Engine) Historical(version int64, view *dataset.View, limit int) (*models.HistoricalResponse, error) {
	start := time.Now()
	limit = e.ClampLimit(limit)

	idxStart := time.Now()
	idx, err := e.Index(version, view)
	if err != nil {
		return nil, err
	}
	indexMs := sinceMs(idxStart)

	groupStart := time.Now()
	artists, albums, tracks := newTable(), newTable(), newTable()
	for i := range view.Events {
		ev := &view.Events[i]
		artists.add(ev.ArtistName, "", ev, true)
		albums.add(ev.AlbumName, "", ev, true)
		tracks.add(ev.TrackName, ev.TrackID, ev, false)
	}

	resp := &models.HistoricalResponse{
		Artists:      artists.top(limit),
		Albums:       albums.top(limit),
		Tracks:       tracks.top(limit),
		Limit:        limit,
		DerivedIndex: *idx,
	}
	resp.Timings = models.Timings{
		IndexMs: indexMs,
		GroupMs: sinceMs(groupStart),
		TotalMs: sinceMs(start),
	}
	return resp, nil
}
