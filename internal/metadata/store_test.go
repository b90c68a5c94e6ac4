// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package metadata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/trackgraph/internal/blob"
	"github.com/tomtom215/trackgraph/internal/metrics"
	"github.com/tomtom215/trackgraph/internal/models"
)

func trackEntity(id string) *models.Entity {
	return &models.Entity{
		ID:      id,
		Name:    "Track " + id,
		Artists: []models.ArtistRef{{ID: "ar1", Name: "Artist"}},
		Album:   &models.AlbumRef{Name: "Album", Images: []models.Image{{URL: "https://img/" + id}}},
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestOpenPrefersRemote(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	local := NewFileMirror(filepath.Join(dir, "static_data.json"))
	if err := local.Save(map[string]*models.Entity{"old": trackEntity("old")}); err != nil {
		t.Fatal(err)
	}

	remote := blob.NewMemory()
	_ = remote.Put(ctx, "b", "static_data.json", mustJSON(t, map[string]*models.Entity{"t1": trackEntity("t1")}), "application/json")

	s := Open(ctx, Options{Local: local, Remote: remote, Bucket: "b", Key: "static_data.json"})
	if _, ok := s.Get("t1"); !ok {
		t.Fatal("remote entity not loaded")
	}
	if _, ok := s.Get("old"); ok {
		t.Error("local entity should be replaced by the remote copy")
	}

	// The remote copy is mirrored locally.
	mirrored, err := local.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mirrored["t1"]; !ok || len(mirrored) != 1 {
		t.Errorf("local mirror = %v, want only t1", mirrored)
	}
}

func TestOpenFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	local := NewFileMirror(filepath.Join(t.TempDir(), "static_data.json"))
	if err := local.Save(map[string]*models.Entity{"t2": trackEntity("t2")}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		remote *blob.Memory
	}{
		{"remote missing", blob.NewMemory()},
		{"remote empty", func() *blob.Memory {
			m := blob.NewMemory()
			_ = m.Put(ctx, "b", "k", []byte(`{}`), "application/json")
			return m
		}()},
		{"remote corrupt", func() *blob.Memory {
			m := blob.NewMemory()
			_ = m.Put(ctx, "b", "k", []byte(`not json`), "application/json")
			return m
		}()},
		{"remote error", func() *blob.Memory {
			m := blob.NewMemory()
			m.GetErr = errors.New("network down")
			return m
		}()},
	}
	for _, tt := range tests {
		s := Open(ctx, Options{Local: local, Remote: tt.remote, Bucket: "b", Key: "k"})
		if _, ok := s.Get("t2"); !ok {
			t.Errorf("%s: local entity not loaded", tt.name)
		}
	}
}

func TestOpenCorruptLocalIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "static_data.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := Open(context.Background(), Options{Local: NewFileMirror(path)})
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestDecodeEntriesSkipsNonObjects(t *testing.T) {
	t.Parallel()

	data := []byte(`{"a": {"name": "A"}, "b": "oops", "c": null, "d": [1,2], "e": {"id": "e", "album": {"name": "X"}}}`)
	got := decodeEntries(data)
	if len(got) != 2 {
		t.Fatalf("decoded %d entries, want 2: %v", len(got), got)
	}
	if got["a"].ID != "a" {
		t.Errorf("missing id should default to the key, got %q", got["a"].ID)
	}
	if !got["e"].HasAlbum() {
		t.Error("entity e should keep its album")
	}
}

func TestFlushWritesBothTargets(t *testing.T) {
	ctx := context.Background()
	local := NewFileMirror(filepath.Join(t.TempDir(), "nested", "static_data.json"))
	remote := blob.NewMemory()

	s := Open(ctx, Options{Local: local, Remote: remote, Bucket: "b", Key: "k"})
	s.Put("t1", trackEntity("t1"))
	s.Put("", trackEntity("ignored"))
	s.Put("nil", nil)
	s.Flush(ctx)

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	saved, err := local.Load()
	if err != nil || len(saved) != 1 {
		t.Fatalf("local = %v, %v", saved, err)
	}
	data, err := remote.Get(ctx, "b", "k")
	if err != nil {
		t.Fatalf("remote Get() error: %v", err)
	}
	if got := decodeEntries(data); got["t1"] == nil || got["t1"].AlbumImageURL() != "https://img/t1" {
		t.Errorf("remote document = %s", data)
	}
}

func TestFlushSwallowsFailures(t *testing.T) {
	ctx := context.Background()
	remote := blob.NewMemory()
	remote.PutErr = errors.New("denied")

	before := testutil.ToFloat64(metrics.MetadataPersistFailures.WithLabelValues("remote"))
	s := Open(ctx, Options{Remote: remote, Bucket: "b", Key: "k"})
	s.Put("t1", trackEntity("t1"))
	s.Flush(ctx)

	if d := testutil.ToFloat64(metrics.MetadataPersistFailures.WithLabelValues("remote")) - before; d != 1 {
		t.Errorf("remote failure delta = %v, want 1", d)
	}
	if _, ok := s.Get("t1"); !ok {
		t.Error("entity lost after failed flush")
	}
}

// gatedMirror blocks its first Save until released and records every save.
type gatedMirror struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	saves []int
}

func (m *gatedMirror) Load() (map[string]*models.Entity, error) { return nil, nil }

func (m *gatedMirror) Save(entries map[string]*models.Entity) error {
	n := len(entries)
	m.once.Do(func() {
		close(m.entered)
		<-m.release
	})
	m.mu.Lock()
	m.saves = append(m.saves, n)
	m.mu.Unlock()
	return nil
}

func (m *gatedMirror) Close() error { return nil }

func TestFlushNeverWritesOlderMap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mirror := &gatedMirror{entered: make(chan struct{}), release: make(chan struct{})}
	s := Open(ctx, Options{Local: mirror})

	s.Put("t1", trackEntity("t1"))
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Flush(ctx)
	}()
	<-mirror.entered

	s.Put("t2", trackEntity("t2"))
	go func() {
		defer wg.Done()
		s.Flush(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	close(mirror.release)
	wg.Wait()

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	if len(mirror.saves) != 2 {
		t.Fatalf("saves = %v, want 2", mirror.saves)
	}
	if last := mirror.saves[len(mirror.saves)-1]; last != 2 {
		t.Errorf("last save held %d entries, want 2 (saves %v)", last, mirror.saves)
	}
}
