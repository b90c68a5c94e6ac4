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

type trackTotals struct {
	name  string
	ms    int64
	plays int
}

type bubbleGroup struct {
	key    string
	label  string
	artist string
	ms     int64
	plays  int

	trackNames map[string]struct{}
	ids        []string
	idSeen     map[string]struct{}
	tracks     map[string]*trackTotals
}

func newBubbleGroup(key, label, artist string) *bubbleGroup {
	return &bubbleGroup{
		key:        key,
		label:      label,
		artist:     artist,
		trackNames: make(map[string]struct{}),
		idSeen:     make(map[string]struct{}),
		tracks:     make(map[string]*trackTotals),
	}
}

func (g *bubbleGroup) add(ev *models.ListeningEvent) {
	g.ms += ev.MsPlayed
	g.plays++
	g.trackNames[ev.TrackName] = struct{}{}
	if ev.TrackID != "" {
		if _, ok := g.idSeen[ev.TrackID]; !ok {
			g.idSeen[ev.TrackID] = struct{}{}
			g.ids = append(g.ids, ev.TrackID)
		}
	}
	tt, ok := g.tracks[ev.TrackName]
	if !ok {
		tt = &trackTotals{name: ev.TrackName}
		g.tracks[ev.TrackName] = tt
	}
	tt.ms += ev.MsPlayed
	tt.plays++
}

// Aggregate groups the view into bubbles. The returned response carries the
// derived index but no artwork; hydration fills that in later.
//
// The number of bubbles is the count of groups whose name crossed the play
// time threshold, capped at MaxItems. When no group crosses it the fallback
// count is used instead.
func (e *Engine) Aggregate(version int64, view *dataset.View, groupBy models.GroupBy) (*models.BubbleResponse, error) {
	start := time.Now()

	idxStart := time.Now()
	idx, err := e.Index(version, view)
	if err != nil {
		return nil, err
	}
	indexMs := sinceMs(idxStart)

	groupStart := time.Now()
	groups := make(map[string]*bubbleGroup)
	order := make([]*bubbleGroup, 0)
	nameMs := make(map[string]int64)
	var total int64

	for i := range view.Events {
		ev := &view.Events[i]
		total += ev.MsPlayed

		var key, label, artist, name string
		if groupBy == models.GroupByAlbum {
			key, label, artist, name = models.PairKey(ev.ArtistName, ev.AlbumName), ev.AlbumName, ev.ArtistName, ev.AlbumName
		} else {
			key, label, name = ev.ArtistName, ev.ArtistName, ev.ArtistName
		}
		nameMs[name] += ev.MsPlayed

		g, ok := groups[key]
		if !ok {
			g = newBubbleGroup(key, label, artist)
			groups[key] = g
			order = append(order, g)
		}
		g.add(ev)
	}

	limit := 0
	for _, g := range order {
		if nameMs[g.label] > e.cfg.ThresholdMs {
			limit++
		}
	}
	maxItems := min(len(order), e.cfg.MaxItems)
	if limit == 0 {
		limit = min(maxItems, e.cfg.FallbackItems)
	}
	limit = min(limit, maxItems)

	slices.SortFunc(order, func(a, b *bubbleGroup) int {
		return cmp.Or(
			cmp.Compare(b.ms, a.ms),
			cmp.Compare(a.label, b.label),
			cmp.Compare(a.artist, b.artist),
		)
	})
	order = slices.DeleteFunc(order, func(g *bubbleGroup) bool { return g.ms <= 0 })
	if len(order) > limit {
		order = order[:limit]
	}

	items := make([]models.BubbleItem, 0, len(order))
	for _, g := range order {
		pct := 0.0
		if total > 0 {
			pct = float64(g.ms) / float64(total)
		}
		ids := g.ids
		if ids == nil {
			ids = []string{}
		}
		items = append(items, models.BubbleItem{
			ID:             g.key,
			Label:          g.label,
			Artist:         g.artist,
			ValueMs:        g.ms,
			ValueHours:     ToHours(g.ms),
			ValuePct:       pct,
			Plays:          g.plays,
			DistinctTracks: len(g.trackNames),
			TopTracks:      e.topTracks(g),
			IDs:            ids,
		})
	}
	groupMs := sinceMs(groupStart)

	return &models.BubbleResponse{
		GroupBy:      groupBy,
		TotalMs:      total,
		TotalHours:   ToHours(total),
		TotalPlays:   view.Plays(),
		Items:        items,
		DerivedIndex: *idx,
		Timings: models.Timings{
			IndexMs: indexMs,
			GroupMs: groupMs,
			TotalMs: sinceMs(start),
		},
	}, nil
}

func (e *Engine) topTracks(g *bubbleGroup) []models.TopTrack {
	tracks := make([]*trackTotals, 0, len(g.tracks))
	for _, t := range g.tracks {
		tracks = append(tracks, t)
	}
	slices.SortFunc(tracks, func(a, b *trackTotals) int {
		return cmp.Or(cmp.Compare(b.ms, a.ms), cmp.Compare(a.name, b.name))
	})
	if len(tracks) > e.cfg.TopTracks {
		tracks = tracks[:e.cfg.TopTracks]
	}

	out := make([]models.TopTrack, len(tracks))
	for i, t := range tracks {
		out[i] = models.TopTrack{Name: t.name, Ms: t.ms, Hours: ToHours(t.ms), Plays: t.plays}
	}
	return out
}
