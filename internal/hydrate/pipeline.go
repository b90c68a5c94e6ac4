// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

// Package hydrate attaches catalog artwork to aggregated bubbles.
//
// Each bubble gets a representative track. Tracks are looked up in the
// metadata cache first and fetched from the catalog in one batch on a miss.
// In the artist view the track's artist is then resolved the same way and
// its portrait replaces the album cover. Hydration is best-effort: catalog
// failures leave items without images and never fail the request.
package hydrate

import (
	"context"
	"slices"

	"github.com/tomtom215/trackgraph/internal/logging"
	"github.com/tomtom215/trackgraph/internal/metrics"
	"github.com/tomtom215/trackgraph/internal/models"
)

// MetadataCache is the entity store consulted before the catalog.
type MetadataCache interface {
	Get(id string) (*models.Entity, bool)
	Put(id string, e *models.Entity)
	Flush(ctx context.Context)
}

// Fetcher resolves entities from the catalog.
type Fetcher interface {
	Configured() bool
	FetchTracks(ctx context.Context, ids []string) ([]models.Entity, error)
	FetchArtists(ctx context.Context, ids []string) ([]models.Entity, error)
}

// Pipeline hydrates bubble items. Safe for concurrent use when its
// dependencies are.
type Pipeline struct {
	cache    MetadataCache
	fetcher  Fetcher
	demoMode bool
}

// New creates a pipeline. In demo mode nothing is fetched and only cached
// metadata is used.
func New(cache MetadataCache, fetcher Fetcher, demoMode bool) *Pipeline {
	return &Pipeline{cache: cache, fetcher: fetcher, demoMode: demoMode}
}

func (p *Pipeline) canFetch() bool {
	return p.fetcher != nil && p.fetcher.Configured() && !p.demoMode
}

// Hydrate sets RepresentativeTrackID and ImageURL on items in place.
func (p *Pipeline) Hydrate(ctx context.Context, items []models.BubbleItem, groupBy models.GroupBy, idx *models.DerivedIndex) models.HydrateStats {
	var stats models.HydrateStats
	if len(items) == 0 {
		return stats
	}

	reps := make(map[int]string, len(items))
	for i := range items {
		if rep := representativeTrack(&items[i], groupBy, idx); rep != "" {
			reps[i] = rep
		}
	}
	if len(reps) == 0 {
		return stats
	}

	trackIDs := uniqueSorted(reps)
	tracks, hits, misses, fetched, newTracks := p.resolve(ctx, trackIDs, (*models.Entity).HasAlbum, p.fetchTracks)
	stats.TracksCacheHits, stats.TracksCacheMisses, stats.TracksFetched = hits, misses, fetched
	metrics.RecordHydration("track", hits, misses, fetched)

	artistFor := make(map[int]string)
	for i, rep := range reps {
		item := &items[i]
		item.RepresentativeTrackID = rep
		track := tracks[rep]
		if track == nil {
			continue
		}
		if url := track.AlbumImageURL(); url != "" && item.ImageURL == "" {
			item.ImageURL = url
		}
		if groupBy == models.GroupByArtist {
			if artist, ok := track.MatchArtist(item.Label); ok && artist.ID != "" {
				artistFor[i] = artist.ID
			}
		}
	}

	newArtists := false
	if groupBy == models.GroupByArtist && len(artistFor) > 0 {
		var artists map[string]*models.Entity
		artists, hits, misses, fetched, newArtists = p.resolve(ctx, uniqueSorted(artistFor), (*models.Entity).HasImages, p.fetchArtists)
		stats.ArtistsCacheHits, stats.ArtistsCacheMisses, stats.ArtistsFetched = hits, misses, fetched
		metrics.RecordHydration("artist", hits, misses, fetched)

		for i, aid := range artistFor {
			if url := artists[aid].ImageURL(); url != "" {
				items[i].ImageURL = url
			}
		}
	}

	if newTracks || newArtists {
		p.cache.Flush(ctx)
	}
	return stats
}

// representativeTrack picks the track whose artwork stands for the item.
func representativeTrack(item *models.BubbleItem, groupBy models.GroupBy, idx *models.DerivedIndex) string {
	for _, id := range item.IDs {
		if id != "" {
			return id
		}
	}
	if idx == nil {
		return ""
	}
	if groupBy == models.GroupByAlbum {
		if item.Artist == "" {
			return ""
		}
		return idx.ArtistAlbumToID[models.PairKey(item.Artist, item.Label)]
	}
	for _, top := range item.TopTracks {
		if top.Name == "" {
			continue
		}
		album, ok := idx.TrackArtistToAlbum[models.PairKey(top.Name, item.Label)]
		if !ok || album == "" {
			continue
		}
		if rep := idx.ArtistAlbumToID[models.PairKey(item.Label, album)]; rep != "" {
			return rep
		}
	}
	return ""
}

type fetchFunc func(ctx context.Context, ids []string) []models.Entity

// resolve looks ids up in the cache (usable decides what counts as a hit)
// and fetches the rest in one call. Fetched entities are cached.
func (p *Pipeline) resolve(ctx context.Context, ids []string, usable func(*models.Entity) bool, fetch fetchFunc) (
	found map[string]*models.Entity, hits, misses, fetched int, stored bool,
) {
	found = make(map[string]*models.Entity, len(ids))
	var missing []string
	for _, id := range ids {
		if e, ok := p.cache.Get(id); ok && usable(e) {
			found[id] = e
			hits++
			continue
		}
		missing = append(missing, id)
		misses++
	}

	if len(missing) == 0 || !p.canFetch() {
		return found, hits, misses, 0, false
	}
	for _, e := range fetch(ctx, missing) {
		if e.ID == "" {
			continue
		}
		fetched++
		entity := e
		found[e.ID] = &entity
		p.cache.Put(e.ID, &entity)
		stored = true
	}
	return found, hits, misses, fetched, stored
}

func (p *Pipeline) fetchTracks(ctx context.Context, ids []string) []models.Entity {
	out, err := p.fetcher.FetchTracks(ctx, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("ids", len(ids)).Msg("Track hydration fetch failed")
		return nil
	}
	return out
}

func (p *Pipeline) fetchArtists(ctx context.Context, ids []string) []models.Entity {
	out, err := p.fetcher.FetchArtists(ctx, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("ids", len(ids)).Msg("Artist hydration fetch failed")
		return nil
	}
	return out
}

func uniqueSorted(m map[int]string) []string {
	seen := make(map[string]struct{}, len(m))
	out := make([]string, 0, len(m))
	for _, v := range m {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
