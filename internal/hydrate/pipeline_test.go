// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package hydrate

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/tomtom215/trackgraph/internal/models"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string]*models.Entity
	flushes int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*models.Entity)}
}

func (m *memCache) Get(id string) (*models.Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	return e, ok
}

func (m *memCache) Put(id string, e *models.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = e
}

func (m *memCache) Flush(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
}

type fakeFetcher struct {
	configured bool
	tracks     map[string]models.Entity
	artists    map[string]models.Entity
	err        error

	trackCalls  [][]string
	artistCalls [][]string
}

func (f *fakeFetcher) Configured() bool { return f.configured }

func (f *fakeFetcher) FetchTracks(_ context.Context, ids []string) ([]models.Entity, error) {
	f.trackCalls = append(f.trackCalls, slices.Clone(ids))
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Entity
	for _, id := range ids {
		if e, ok := f.tracks[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeFetcher) FetchArtists(_ context.Context, ids []string) ([]models.Entity, error) {
	f.artistCalls = append(f.artistCalls, slices.Clone(ids))
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Entity
	for _, id := range ids {
		if e, ok := f.artists[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func track(id, artistID, artistName, cover string) models.Entity {
	return models.Entity{
		ID:      id,
		Artists: []models.ArtistRef{{ID: "other", Name: "Someone Else"}, {ID: artistID, Name: artistName}},
		Album:   &models.AlbumRef{Name: "Album", Images: []models.Image{{URL: cover}}},
	}
}

func artist(id, portrait string) models.Entity {
	return models.Entity{ID: id, Images: []models.Image{{URL: portrait}}}
}

func TestHydrateArtistView(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	fetcher := &fakeFetcher{
		configured: true,
		tracks:     map[string]models.Entity{"t1": track("t1", "ar1", "the band", "https://cover/t1")},
		artists:    map[string]models.Entity{"ar1": artist("ar1", "https://portrait/ar1")},
	}
	items := []models.BubbleItem{{ID: "The Band", Label: "The Band", IDs: []string{"t1"}}}

	stats := New(cache, fetcher, false).Hydrate(context.Background(), items, models.GroupByArtist, nil)

	if items[0].RepresentativeTrackID != "t1" {
		t.Errorf("RepresentativeTrackID = %q", items[0].RepresentativeTrackID)
	}
	if items[0].ImageURL != "https://portrait/ar1" {
		t.Errorf("ImageURL = %q, want artist portrait", items[0].ImageURL)
	}
	want := models.HydrateStats{TracksCacheMisses: 1, TracksFetched: 1, ArtistsCacheMisses: 1, ArtistsFetched: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if cache.flushes != 1 {
		t.Errorf("flushes = %d, want 1", cache.flushes)
	}
	if _, ok := cache.Get("ar1"); !ok {
		t.Error("fetched artist not cached")
	}

	// Second pass is served from the cache.
	items[0].ImageURL = ""
	stats = New(cache, fetcher, false).Hydrate(context.Background(), items, models.GroupByArtist, nil)
	if stats.TracksCacheHits != 1 || stats.ArtistsCacheHits != 1 || stats.TracksFetched != 0 {
		t.Errorf("second pass stats = %+v", stats)
	}
	if len(fetcher.trackCalls) != 1 || cache.flushes != 1 {
		t.Errorf("second pass fetched again: calls=%d flushes=%d", len(fetcher.trackCalls), cache.flushes)
	}
}

func TestHydrateAlbumViewUsesIndex(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	cached := track("t9", "ar", "Band", "https://cover/t9")
	cache.Put("t9", &cached)

	idx := &models.DerivedIndex{ArtistAlbumToID: map[string]string{"Band::Record": "t9"}}
	items := []models.BubbleItem{
		{ID: "Band::Record", Label: "Record", Artist: "Band", IDs: []string{}},
		{ID: "Band::Kept", Label: "Kept", Artist: "Band", IDs: []string{"t9"}, ImageURL: "https://already"},
	}

	fetcher := &fakeFetcher{configured: true}
	stats := New(cache, fetcher, false).Hydrate(context.Background(), items, models.GroupByAlbum, idx)

	if items[0].RepresentativeTrackID != "t9" || items[0].ImageURL != "https://cover/t9" {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[1].ImageURL != "https://already" {
		t.Errorf("existing image overwritten: %q", items[1].ImageURL)
	}
	if stats.TracksCacheHits != 1 || stats.ArtistsCacheMisses != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(fetcher.trackCalls) != 0 || len(fetcher.artistCalls) != 0 {
		t.Error("album view with cached tracks should not fetch")
	}
}

func TestHydrateArtistFallbackThroughTopTracks(t *testing.T) {
	t.Parallel()

	idx := &models.DerivedIndex{
		ArtistAlbumToID:    map[string]string{"Band::LP": "t5"},
		TrackArtistToAlbum: map[string]string{"Hit::Band": "LP"},
	}
	item := models.BubbleItem{
		Label:     "Band",
		IDs:       []string{},
		TopTracks: []models.TopTrack{{Name: "Unknown Song"}, {Name: "Hit"}},
	}
	if rep := representativeTrack(&item, models.GroupByArtist, idx); rep != "t5" {
		t.Errorf("representativeTrack() = %q, want t5", rep)
	}
	if rep := representativeTrack(&item, models.GroupByArtist, nil); rep != "" {
		t.Errorf("representativeTrack() without index = %q", rep)
	}
}

func TestHydrateSkipsFetchWhenDisabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured bool
		demo       bool
	}{
		{"not configured", false, false},
		{"demo mode", true, true},
	}
	for _, tt := range tests {
		cache := newMemCache()
		fetcher := &fakeFetcher{configured: tt.configured, tracks: map[string]models.Entity{"t1": track("t1", "a", "A", "u")}}
		items := []models.BubbleItem{{Label: "A", IDs: []string{"t1"}}}

		stats := New(cache, fetcher, tt.demo).Hydrate(context.Background(), items, models.GroupByArtist, nil)
		if len(fetcher.trackCalls) != 0 {
			t.Errorf("%s: fetched while disabled", tt.name)
		}
		if stats.TracksCacheMisses != 1 || stats.TracksFetched != 0 {
			t.Errorf("%s: stats = %+v", tt.name, stats)
		}
		if items[0].RepresentativeTrackID != "t1" || items[0].ImageURL != "" {
			t.Errorf("%s: item = %+v", tt.name, items[0])
		}
	}
}

func TestHydrateFetchErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	fetcher := &fakeFetcher{configured: true, err: errors.New("upstream down")}
	items := []models.BubbleItem{{Label: "A", IDs: []string{"t1"}}, {Label: "B", IDs: []string{"t1"}}}

	stats := New(cache, fetcher, false).Hydrate(context.Background(), items, models.GroupByArtist, nil)
	if stats.TracksCacheMisses != 1 {
		t.Errorf("duplicate rep ids should be looked up once: %+v", stats)
	}
	if cache.flushes != 0 {
		t.Error("nothing fetched, nothing to flush")
	}
	for _, it := range items {
		if it.ImageURL != "" {
			t.Errorf("unexpected image for %s", it.Label)
		}
	}
}

func TestHydrateCachedTrackWithoutAlbumIsMiss(t *testing.T) {
	t.Parallel()

	cache := newMemCache()
	cache.Put("t1", &models.Entity{ID: "t1"})
	fetcher := &fakeFetcher{configured: true, tracks: map[string]models.Entity{"t1": track("t1", "a", "A", "https://cover")}}
	items := []models.BubbleItem{{Label: "Record", Artist: "A", IDs: []string{"t1"}}}

	stats := New(cache, fetcher, false).Hydrate(context.Background(), items, models.GroupByAlbum, nil)
	if stats.TracksCacheMisses != 1 || stats.TracksFetched != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if items[0].ImageURL != "https://cover" {
		t.Errorf("ImageURL = %q", items[0].ImageURL)
	}
}
