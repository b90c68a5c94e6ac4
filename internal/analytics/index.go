// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package analytics

import (
	"cmp"
	"slices"

	"github.com/tomtom215/trackgraph/internal/models"
)

type artistAlbum struct {
	artist, album string
}

// BuildIndex derives the lookup maps of a set of events:
//
//   - ArtistAlbumToID: "artist::album" -> first non-empty track id seen
//   - IDToArtistAlbum: track id -> "artist::album"; when one id appears
//     under several pairs the last pair in (artist, album) order wins
//   - TrackArtistToAlbum: "track::artist" -> album of the last event
func BuildIndex(events []models.ListeningEvent) *models.DerivedIndex {
	firstID := make(map[artistAlbum]string)
	trackArtist := make(map[string]string)

	for i := range events {
		ev := &events[i]
		p := artistAlbum{ev.ArtistName, ev.AlbumName}
		if _, ok := firstID[p]; !ok || firstID[p] == "" {
			firstID[p] = ev.TrackID
		}
		trackArtist[models.PairKey(ev.TrackName, ev.ArtistName)] = ev.AlbumName
	}

	pairs := make([]artistAlbum, 0, len(firstID))
	for p, id := range firstID {
		if id != "" {
			pairs = append(pairs, p)
		}
	}
	slices.SortFunc(pairs, func(a, b artistAlbum) int {
		return cmp.Or(cmp.Compare(a.artist, b.artist), cmp.Compare(a.album, b.album))
	})

	idx := &models.DerivedIndex{
		ArtistAlbumToID:    make(map[string]string, len(pairs)),
		IDToArtistAlbum:    make(map[string]string, len(pairs)),
		TrackArtistToAlbum: trackArtist,
	}
	for _, p := range pairs {
		key := models.PairKey(p.artist, p.album)
		id := firstID[p]
		idx.ArtistAlbumToID[key] = id
		idx.IDToArtistAlbum[id] = key
	}
	return idx
}
