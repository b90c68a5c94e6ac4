// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

// Package metadata keeps catalog entities (tracks and artists) between
// requests and restarts.
//
// The in-memory map is authoritative while the process runs. It is seeded
// from the remote mirror when that holds data, otherwise from the local
// mirror, and written back to both on Flush. Persistence is best-effort:
// failures are logged and counted but never surface to callers.
package metadata

import (
	"bytes"
	"context"
	"maps"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trackgraph/internal/blob"
	"github.com/tomtom215/trackgraph/internal/logging"
	"github.com/tomtom215/trackgraph/internal/metrics"
	"github.com/tomtom215/trackgraph/internal/models"
)

// Mirror is a local persistence backend for the entity map.
type Mirror interface {
	Load() (map[string]*models.Entity, error)
	Save(entries map[string]*models.Entity) error
	Close() error
}

// Options configures Open.
type Options struct {
	// Local is the local mirror. Nil disables local persistence.
	Local Mirror

	// Remote is the object store holding the shared copy. Nil, or an empty
	// Bucket or Key, disables remote persistence.
	Remote blob.Store
	Bucket string
	Key    string
}

// Store is the metadata cache. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*models.Entity

	flushMu sync.Mutex

	local  Mirror
	remote blob.Store
	bucket string
	key    string
}

// Open builds a Store and loads its initial contents. Load failures leave
// the store empty; Open never fails.
func Open(ctx context.Context, opts Options) *Store {
	s := &Store{
		entries: make(map[string]*models.Entity),
		local:   opts.Local,
		remote:  opts.Remote,
		bucket:  opts.Bucket,
		key:     opts.Key,
	}
	s.load(ctx)
	metrics.MetadataEntries.Set(float64(len(s.entries)))
	return s
}

func (s *Store) remoteConfigured() bool {
	return s.remote != nil && s.bucket != "" && s.key != ""
}

func (s *Store) load(ctx context.Context) {
	if s.remoteConfigured() {
		data, err := s.remote.Get(ctx, s.bucket, s.key)
		switch {
		case err != nil:
			logging.Warn().Err(err).Str("bucket", s.bucket).Str("key", s.key).
				Msg("Remote metadata unavailable, falling back to local copy")
		default:
			if entries := decodeEntries(data); len(entries) > 0 {
				s.entries = entries
				if s.local != nil {
					if err := s.local.Save(entries); err != nil {
						s.persistFailed("local", err)
					}
				}
				logging.Info().Int("entries", len(entries)).Msg("Loaded metadata from remote")
				return
			}
		}
	}

	if s.local == nil {
		return
	}
	entries, err := s.local.Load()
	if err != nil {
		logging.Warn().Err(err).Msg("Local metadata unreadable, starting empty")
		return
	}
	if entries != nil {
		s.entries = entries
	}
	logging.Debug().Int("entries", len(s.entries)).Msg("Loaded metadata from local mirror")
}

// Get returns the entity stored under id.
func (s *Store) Get(id string) (*models.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Put stores e under id, replacing any previous value. Empty ids and nil
// entities are ignored.
func (s *Store) Put(id string, e *models.Entity) {
	if id == "" || e == nil {
		return
	}
	s.mu.Lock()
	s.entries[id] = e
	n := len(s.entries)
	s.mu.Unlock()
	metrics.MetadataEntries.Set(float64(n))
}

// Len returns the number of stored entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Flush writes the current map to the local mirror and the remote object.
// Flushes are serialized and each copies the map only once it holds the
// flush lock, so a later flush never writes an older map.
func (s *Store) Flush(ctx context.Context) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.RLock()
	snapshot := maps.Clone(s.entries)
	s.mu.RUnlock()

	if s.local != nil {
		if err := s.local.Save(snapshot); err != nil {
			s.persistFailed("local", err)
		}
	}
	if !s.remoteConfigured() {
		return
	}
	data, err := encodeEntries(snapshot)
	if err != nil {
		s.persistFailed("remote", err)
		return
	}
	if err := s.remote.Put(ctx, s.bucket, s.key, data, "application/json"); err != nil {
		s.persistFailed("remote", err)
	}
}

// Close releases the local mirror.
func (s *Store) Close() error {
	if s.local == nil {
		return nil
	}
	return s.local.Close()
}

func (s *Store) persistFailed(target string, err error) {
	metrics.MetadataPersistFailures.WithLabelValues(target).Inc()
	logging.Warn().Err(err).Str("target", target).Msg("Metadata persistence failed")
}

// decodeEntries reads a JSON object of id -> entity. Values that are not
// objects or do not decode are skipped; an unreadable document is empty.
func decodeEntries(data []byte) map[string]*models.Entity {
	out := make(map[string]*models.Entity)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return out
	}
	for id, msg := range raw {
		msg = bytes.TrimSpace(msg)
		if id == "" || len(msg) == 0 || msg[0] != '{' {
			continue
		}
		var e models.Entity
		if err := json.Unmarshal(msg, &e); err != nil {
			continue
		}
		if e.ID == "" {
			e.ID = id
		}
		out[id] = &e
	}
	return out
}

func encodeEntries(entries map[string]*models.Entity) ([]byte, error) {
	return json.MarshalIndent(entries, "", "  ")
}
