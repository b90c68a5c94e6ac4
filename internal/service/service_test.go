// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/trackgraph/internal/analytics"
	"github.com/tomtom215/trackgraph/internal/config"
	"github.com/tomtom215/trackgraph/internal/dataset"
	"github.com/tomtom215/trackgraph/internal/metadata"
	"github.com/tomtom215/trackgraph/internal/models"
)

type snapshotLoader struct {
	calls atomic.Int32
	snap  *dataset.Snapshot
}

func (l *snapshotLoader) Load(context.Context) (*dataset.Snapshot, error) {
	l.calls.Add(1)
	return l.snap, nil
}

type fakeCatalog struct {
	mu         sync.Mutex
	configured bool
	tracks     map[string]models.Entity
	artists    map[string]models.Entity
	err        error
	calls      [][]string
}

func (f *fakeCatalog) Configured() bool { return f.configured }

func (f *fakeCatalog) lookup(ids []string, src map[string]models.Entity) ([]models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slices.Clone(ids))
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Entity
	for _, id := range ids {
		if e, ok := src[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCatalog) FetchTracks(_ context.Context, ids []string) ([]models.Entity, error) {
	return f.lookup(ids, f.tracks)
}

func (f *fakeCatalog) FetchArtists(_ context.Context, ids []string) ([]models.Entity, error) {
	return f.lookup(ids, f.artists)
}

func (f *fakeCatalog) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func listen(day int, artist, album, track, id string, minutes int64) models.ListeningEvent {
	return models.ListeningEvent{
		Timestamp:  time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC),
		MsPlayed:   minutes * 60_000,
		TrackName:  track,
		ArtistName: artist,
		AlbumName:  album,
		TrackID:    id,
	}
}

func defaultEvents() []models.ListeningEvent {
	return []models.ListeningEvent{
		listen(1, "Alpha", "First", "One", "t1", 70),
		listen(2, "Alpha", "First", "One", "t1", 50),
		listen(3, "Beta", "Second", "Two", "t2", 90),
		listen(20, "Gamma", "Third", "Three", "t3", 5),
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		configured: true,
		tracks: map[string]models.Entity{
			"t1": {
				ID:      "t1",
				Artists: []models.ArtistRef{{ID: "a1", Name: "Alpha"}},
				Album:   &models.AlbumRef{Images: []models.Image{{URL: "cover-1"}}},
			},
		},
		artists: map[string]models.Entity{
			"a1": {ID: "a1", Name: "Alpha", Images: []models.Image{{URL: "portrait-1"}}},
		},
	}
}

type fixture struct {
	svc     *Service
	store   *dataset.Store
	meta    *metadata.Store
	catalog *fakeCatalog
	loader  *snapshotLoader
}

func newFixture(t *testing.T, catalog *fakeCatalog, prewarm *Prewarmer) *fixture {
	t.Helper()

	loader := &snapshotLoader{snap: dataset.NewSnapshot(defaultEvents())}
	store := dataset.NewStore(loader)
	meta := metadata.Open(context.Background(), metadata.Options{})
	svc := New(Options{
		Store:          store,
		Engine:         analytics.New(analytics.DefaultConfig()),
		Metadata:       meta,
		Catalog:        catalog,
		HydrateTimeout: 5 * time.Second,
		Prewarm:        prewarm,
	})
	if prewarm != nil {
		prewarm.BindService(svc, svc.DefaultHistoricalLimit())
	}
	return &fixture{svc: svc, store: store, meta: meta, catalog: catalog, loader: loader}
}

func uploadCSV(rows ...string) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(dataset.RequiredColumns, ","))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// row renders one export line in RequiredColumns order.
func row(ts, ms, track, artist, album, uri string) string {
	return strings.Join([]string{ts, ms, track, artist, album, uri, "clickrow", "trackdone", "false", "false"}, ",")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSummaryMemoizedPerVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	ctx := context.Background()

	first, err := f.svc.Summary(ctx, models.FilterKey{})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if first.TotalPlays != 4 || first.TotalMs != 215*60_000 {
		t.Errorf("summary = %d plays / %d ms, want 4 / %d", first.TotalPlays, first.TotalMs, 215*60_000)
	}
	again, _ := f.svc.Summary(ctx, models.FilterKey{})
	if again != first {
		t.Error("second Summary call recomputed instead of hitting the cache")
	}

	if _, err := f.svc.UploadHistory(ctx, "history.csv", "text/csv",
		uploadCSV(row("2024-02-01T10:00:00Z", "60000", "Song", "Delta", "Fourth", "spotify:track:t9"))); err != nil {
		t.Fatalf("UploadHistory: %v", err)
	}
	after, err := f.svc.Summary(ctx, models.FilterKey{})
	if err != nil {
		t.Fatalf("Summary after upload: %v", err)
	}
	if after == first || after.TotalPlays != 1 {
		t.Errorf("summary after upload = %+v, want a fresh payload with 1 play", after)
	}
}

func TestSummaryWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	got, err := f.svc.Summary(context.Background(), models.NewFilterKey("2024-01-02", "2024-01-10"))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if got.TotalPlays != 2 {
		t.Errorf("TotalPlays = %d, want 2", got.TotalPlays)
	}
}

func TestInvalidDateIsInvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	ctx := context.Background()
	key := models.NewFilterKey("not-a-date", "")

	if _, err := f.svc.Summary(ctx, key); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Summary error = %v, want ErrInvalidInput", err)
	}
	if _, err := f.svc.Bubbles(ctx, key, models.GroupByArtist); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Bubbles error = %v, want ErrInvalidInput", err)
	}
	if _, err := f.svc.Historical(ctx, key, 10); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Historical error = %v, want ErrInvalidInput", err)
	}
}

func TestBubblesHydrated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	ctx := context.Background()

	resp, err := f.svc.Bubbles(ctx, models.FilterKey{}, models.GroupByArtist)
	if err != nil {
		t.Fatalf("Bubbles: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2 (Alpha and Beta pass the one hour threshold)", len(resp.Items))
	}
	if resp.Items[0].Label != "Alpha" || resp.Items[0].ImageURL != "portrait-1" {
		t.Errorf("first item = %+v, want Alpha with its portrait", resp.Items[0])
	}
	if resp.Timings.Hydrate == nil || resp.Timings.Hydrate.TracksFetched != 1 {
		t.Errorf("hydrate stats = %+v, want one fetched track", resp.Timings.Hydrate)
	}
	if _, ok := f.meta.Get("a1"); !ok {
		t.Error("fetched artist was not stored in the metadata cache")
	}

	calls := f.catalog.callCount()
	again, _ := f.svc.Bubbles(ctx, models.FilterKey{}, models.GroupByArtist)
	if again != resp {
		t.Error("second Bubbles call recomputed instead of hitting the cache")
	}
	if got := f.catalog.callCount(); got != calls {
		t.Errorf("catalog calls = %d after cached request, want %d", got, calls)
	}
}

func TestBubblesHydrationSurvivesCanceledRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	if _, _, err := f.store.Current(context.Background()); err != nil {
		t.Fatalf("Current: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := f.svc.Bubbles(ctx, models.FilterKey{}, models.GroupByArtist)
	if err != nil {
		t.Fatalf("Bubbles: %v", err)
	}
	if resp.Items[0].ImageURL != "portrait-1" {
		t.Errorf("ImageURL = %q, want hydration to run detached from the request", resp.Items[0].ImageURL)
	}
}

func TestHistoricalClampsLimitBeforeCaching(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	ctx := context.Background()

	capped, err := f.svc.Historical(ctx, models.FilterKey{}, 10_000)
	if err != nil {
		t.Fatalf("Historical: %v", err)
	}
	atMax, _ := f.svc.Historical(ctx, models.FilterKey{}, 500)
	if capped != atMax {
		t.Error("limits above the maximum should share the clamped cache entry")
	}
	if len(capped.Tracks) != 3 {
		t.Errorf("top tracks = %d, want 3", len(capped.Tracks))
	}

	one, _ := f.svc.Historical(ctx, models.FilterKey{}, 0)
	if len(one.Tracks) != 1 || one.Tracks[0].Name != "One" {
		t.Errorf("limit 0 rows = %+v, want the single top track", one.Tracks)
	}
}

func TestUploadAndDefault(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	ctx := context.Background()

	res, err := f.svc.UploadHistory(ctx, "mine.csv", "", uploadCSV(
		row("2024-03-01T10:00:00Z", "1000", "A", "B", "C", "spotify:track:x1"),
		row("2024-03-02T10:00:00Z", "2000", "D", "E", "F", "spotify:track:x2"),
	))
	if err != nil {
		t.Fatalf("UploadHistory: %v", err)
	}
	if *res != (models.UploadResult{Status: "ok", Rows: 2, Source: models.SourceUploaded}) {
		t.Errorf("upload result = %+v", res)
	}
	if info := f.svc.DatasetInfo(); info.Source != models.SourceUploaded || info.Version != 1 {
		t.Errorf("info after upload = %+v, want uploaded at version 1", info)
	}
	if f.loader.calls.Load() != 0 {
		t.Errorf("default loader called %d times, want 0", f.loader.calls.Load())
	}

	def, err := f.svc.UseDefaultHistory(ctx)
	if err != nil {
		t.Fatalf("UseDefaultHistory: %v", err)
	}
	if def.Idempotent || def.Rows != 4 || def.Source != models.SourceDefault {
		t.Errorf("first default result = %+v", def)
	}
	def, _ = f.svc.UseDefaultHistory(ctx)
	if !def.Idempotent {
		t.Error("second UseDefaultHistory should be idempotent")
	}
	if got := f.svc.DatasetInfo().Version; got != 2 {
		t.Errorf("version = %d, want 2", got)
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	if _, err := f.svc.UploadHistory(context.Background(), "x.csv", "", nil); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
	if got := f.svc.DatasetInfo().Version; got != 0 {
		t.Errorf("version = %d, want 0", got)
	}
}

func TestParseIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"a", []string{"a"}},
		{"b, a ,b,,c,a", []string{"b", "a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			if got := ParseIDs(tt.raw); !slices.Equal(got, tt.want) {
				t.Errorf("ParseIDs(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTracksBatch(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{
		configured: true,
		tracks: map[string]models.Entity{
			"t2": {ID: "t2", Artists: []models.ArtistRef{{ID: "a2"}}},
			"t3": {ID: "t3", Artists: []models.ArtistRef{{ID: "a3"}}},
		},
	}
	f := newFixture(t, catalog, nil)
	f.meta.Put("t1", &models.Entity{ID: "t1", Artists: []models.ArtistRef{{ID: "a1"}}})
	f.meta.Put("t2", &models.Entity{ID: "t2"})

	resp, err := f.svc.TracksBatch(context.Background(), ParseIDs("t3,t1,t2,t1,missing"))
	if err != nil {
		t.Fatalf("TracksBatch: %v", err)
	}
	var got []string
	for _, e := range resp.Tracks {
		got = append(got, e.ID)
	}
	if want := []string{"t3", "t1", "t2"}; !slices.Equal(got, want) {
		t.Errorf("returned ids = %v, want %v", got, want)
	}
	if len(catalog.calls) != 1 || !slices.Equal(catalog.calls[0], []string{"t3", "t2", "missing"}) {
		t.Errorf("catalog calls = %v, want one call for the misses", catalog.calls)
	}
	if e, ok := f.meta.Get("t2"); !ok || len(e.Artists) == 0 {
		t.Error("fetched track did not replace the incomplete cache entry")
	}
}

func TestArtistsBatchCachedOnlyWithoutCredentials(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{configured: false}
	f := newFixture(t, catalog, nil)
	f.meta.Put("a1", &models.Entity{ID: "a1", Name: "Alpha"})

	resp, err := f.svc.ArtistsBatch(context.Background(), []string{"a1", "a2"})
	if err != nil {
		t.Fatalf("ArtistsBatch: %v", err)
	}
	if len(resp.Artists) != 1 || resp.Artists[0].ID != "a1" {
		t.Errorf("artists = %+v, want only the cached a1", resp.Artists)
	}
	if catalog.callCount() != 0 {
		t.Errorf("catalog called %d times without credentials", catalog.callCount())
	}
}

func TestBatchUpstreamError(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{configured: true, err: fmt.Errorf("%w: status 500", models.ErrUpstream)}
	f := newFixture(t, catalog, nil)

	if _, err := f.svc.TracksBatch(context.Background(), []string{"t1"}); !errors.Is(err, models.ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestPrewarmerCoalescesAndDrops(t *testing.T) {
	t.Parallel()

	p := NewPrewarmer(config.PrewarmConfig{Workers: 1, QueueSize: 1})
	a := PrewarmJob{Version: 1, GroupBy: models.GroupByArtist}
	b := PrewarmJob{Version: 1, GroupBy: models.GroupByAlbum}

	if !p.Offer(a) {
		t.Error("first offer rejected")
	}
	if !p.Offer(a) {
		t.Error("duplicate offer should coalesce")
	}
	if p.Offer(b) {
		t.Error("offer into a full queue should be dropped")
	}
	if got := p.Pending(); got != 1 {
		t.Errorf("pending = %d, want 1", got)
	}

	var nilPool *Prewarmer
	if nilPool.Offer(a) {
		t.Error("nil pool accepted a job")
	}
}

func TestPrewarmerRecoversPanics(t *testing.T) {
	t.Parallel()

	p := NewPrewarmer(config.PrewarmConfig{Workers: 1, QueueSize: 4})
	var runs atomic.Int32
	p.Bind(func(_ context.Context, job PrewarmJob) error {
		runs.Add(1)
		if job.Version == 1 {
			panic("boom")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()

	p.Offer(PrewarmJob{Version: 1})
	p.Offer(PrewarmJob{Version: 2})
	waitFor(t, func() bool { return runs.Load() == 2 && p.Pending() == 0 })

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}

func TestPrewarmWarmsCompanionViews(t *testing.T) {
	t.Parallel()

	p := NewPrewarmer(config.PrewarmConfig{Workers: 2, QueueSize: 8})
	f := newFixture(t, testCatalog(), p)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = p.Serve(ctx) }()

	key := models.FilterKey{}
	if _, err := f.svc.Bubbles(ctx, key, models.GroupByArtist); err != nil {
		t.Fatalf("Bubbles: %v", err)
	}
	waitFor(t, func() bool { return p.Pending() == 0 })

	version := f.store.Version()
	if _, ok := f.svc.bubbles.Peek(version, bubbleKey{key, models.GroupByAlbum}); !ok {
		t.Error("album view was not prewarmed")
	}
	limit := f.svc.DefaultHistoricalLimit()
	if _, ok := f.svc.historical.Peek(version, historicalKey{key, limit}); !ok {
		t.Error("historical table was not prewarmed")
	}
}

func TestRunPrewarmSkipsSupersededVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	if _, _, err := f.store.Current(context.Background()); err != nil {
		t.Fatalf("Current: %v", err)
	}
	err := f.svc.runPrewarm(context.Background(), PrewarmJob{Version: 99, GroupBy: models.GroupByArtist}, 200)
	if !errors.Is(err, errStalePrewarm) {
		t.Errorf("error = %v, want errStalePrewarm", err)
	}
	if f.svc.bubbles.Len() != 0 {
		t.Error("stale job computed a view")
	}
}

func TestBubblesAndHistoricalDroppedOnNewVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testCatalog(), nil)
	ctx := context.Background()

	bubbles, err := f.svc.Bubbles(ctx, models.FilterKey{}, models.GroupByArtist)
	if err != nil {
		t.Fatalf("Bubbles: %v", err)
	}
	hist, err := f.svc.Historical(ctx, models.FilterKey{}, 10)
	if err != nil {
		t.Fatalf("Historical: %v", err)
	}
	if again, _ := f.svc.Bubbles(ctx, models.FilterKey{}, models.GroupByArtist); again != bubbles {
		t.Error("second Bubbles call recomputed instead of hitting the cache")
	}
	if again, _ := f.svc.Historical(ctx, models.FilterKey{}, 10); again != hist {
		t.Error("second Historical call recomputed instead of hitting the cache")
	}

	if _, err := f.svc.UploadHistory(ctx, "history.csv", "text/csv",
		uploadCSV(row("2024-02-01T10:00:00Z", "60000", "Song", "Delta", "Fourth", "spotify:track:t9"))); err != nil {
		t.Fatalf("UploadHistory: %v", err)
	}

	if _, ok := f.svc.bubbles.Peek(f.store.Version(), bubbleKey{models.FilterKey{}, models.GroupByArtist}); ok {
		t.Error("bubbles cache still holds an entry for the new version before any request")
	}

	freshBubbles, err := f.svc.Bubbles(ctx, models.FilterKey{}, models.GroupByArtist)
	if err != nil {
		t.Fatalf("Bubbles after upload: %v", err)
	}
	if freshBubbles == bubbles {
		t.Fatal("Bubbles after upload returned the payload of the previous version")
	}
	if len(freshBubbles.Items) != 1 || freshBubbles.Items[0].Label != "Delta" {
		t.Errorf("bubbles after upload = %+v, want only Delta", freshBubbles.Items)
	}

	freshHist, err := f.svc.Historical(ctx, models.FilterKey{}, 10)
	if err != nil {
		t.Fatalf("Historical after upload: %v", err)
	}
	if freshHist == hist {
		t.Fatal("Historical after upload returned the payload of the previous version")
	}
	if len(freshHist.Tracks) != 1 || freshHist.Tracks[0].Name != "Song" {
		t.Errorf("tracks after upload = %+v, want only Song", freshHist.Tracks)
	}
}

func TestBubblesDegradeWhenCatalogFails(t *testing.T) {
	t.Parallel()

	for _, groupBy := range []models.GroupBy{models.GroupByArtist, models.GroupByAlbum} {
		t.Run(string(groupBy), func(t *testing.T) {
			t.Parallel()

			catalog := &fakeCatalog{configured: true, err: fmt.Errorf("%w: catalog down", models.ErrUpstream)}
			f := newFixture(t, catalog, nil)

			resp, err := f.svc.Bubbles(context.Background(), models.FilterKey{}, groupBy)
			if err != nil {
				t.Fatalf("Bubbles with a failing catalog: %v", err)
			}
			if catalog.callCount() == 0 {
				t.Fatal("catalog was never consulted")
			}
			if len(resp.Items) != 2 {
				t.Fatalf("items = %d, want 2 (Alpha and Beta over the threshold)", len(resp.Items))
			}

			want := map[string]struct {
				ms    int64
				plays int
				top   string
			}{
				"Alpha": {120 * 60_000, 2, "One"},
				"Beta":  {90 * 60_000, 1, "Two"},
			}
			for _, item := range resp.Items {
				name := item.Label
				if groupBy == models.GroupByAlbum {
					name = item.Artist
				}
				w, ok := want[name]
				if !ok {
					t.Errorf("unexpected item %+v", item)
					continue
				}
				if item.ValueMs != w.ms || item.Plays != w.plays || item.DistinctTracks != 1 {
					t.Errorf("%s: ms=%d plays=%d distinct=%d, want %d/%d/1",
						name, item.ValueMs, item.Plays, item.DistinctTracks, w.ms, w.plays)
				}
				if item.ValuePct <= 0 || item.ValueHours <= 0 {
					t.Errorf("%s: pct=%v hours=%v, want both positive", name, item.ValuePct, item.ValueHours)
				}
				if len(item.TopTracks) == 0 || item.TopTracks[0].Name != w.top {
					t.Errorf("%s: top tracks = %+v, want %s first", name, item.TopTracks, w.top)
				}
				if item.ImageURL != "" {
					t.Errorf("%s: image = %q, want empty when the catalog is down", name, item.ImageURL)
				}
			}
		})
	}
}
