// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

// Package dataset owns the active listening-history snapshot.
//
// The Store holds one immutable Snapshot plus a version counter that grows
// by one on every replacement, including the first lazy load. Components that
// memoize derived data subscribe to version changes and drop their entries.
package dataset

import (
	"bytes"
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/trackgraph/internal/logging"
	"github.com/tomtom215/trackgraph/internal/metrics"
	"github.com/tomtom215/trackgraph/internal/models"
)

// Listener is called synchronously after every replacement with the new
// version. A returned error or panic is logged and counted, never propagated.
type Listener func(version int64) error

// Store is the versioned holder of the active snapshot. Safe for concurrent use.
type Store struct {
	loader Loader

	mu        sync.RWMutex
	snap      *Snapshot
	version   int64
	source    string
	listeners []Listener

	initial     singleflight.Group
	loadTimeout time.Duration
}

// defaultLoadTimeout bounds the initial load, including a remote download.
const defaultLoadTimeout = 2 * time.Minute

// NewStore creates an empty store that lazily loads from loader.
func NewStore(loader Loader) *Store {
	return &Store{loader: loader, source: models.SourceUnknown, loadTimeout: defaultLoadTimeout}
}

// Current returns the active snapshot and its version as one consistent pair,
// loading the default source on first use.
func (s *Store) Current(ctx context.Context) (*Snapshot, int64, error) {
	s.mu.RLock()
	snap, v := s.snap, s.version
	s.mu.RUnlock()
	if snap != nil {
		return snap, v, nil
	}

	type result struct {
		snap *Snapshot
		v    int64
	}
	// The load is shared by every first-time caller, so it runs detached from
	// the caller that started it, bounded by loadTimeout.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.initial.DoChan("default", func() (any, error) {
		s.mu.RLock()
		cur, v := s.snap, s.version
		s.mu.RUnlock()
		if cur != nil {
			return result{snap: cur, v: v}, nil
		}

		lctx, cancel := context.WithTimeout(loadCtx, s.loadTimeout)
		defer cancel()
		loaded, err := s.loader.Load(lctx)
		if err != nil {
			return nil, err
		}
		cur, v = s.install(loaded, models.SourceDefault, true)
		return result{snap: cur, v: v}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, 0, res.Err
		}
		r := res.Val.(result)
		return r.snap, r.v, nil
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

// Replace swaps in snap, increments the version and notifies listeners
// before returning the new version.
func (s *Store) Replace(snap *Snapshot, source string) int64 {
	_, v := s.install(snap, source, false)
	return v
}

// install performs the swap. With onlyIfEmpty it keeps an existing snapshot
// (an upload that raced the lazy load wins).
func (s *Store) install(snap *Snapshot, source string, onlyIfEmpty bool) (*Snapshot, int64) {
	s.mu.Lock()
	if onlyIfEmpty && s.snap != nil {
		cur, v := s.snap, s.version
		s.mu.Unlock()
		return cur, v
	}
	s.snap = snap
	s.source = source
	s.version++
	v := s.version
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	metrics.RecordDatasetReplacement(source, v, snap.Rows())
	logging.Info().
		Int64("version", v).
		Str("source", source).
		Int("rows", snap.Rows()).
		Msg("Dataset replaced")

	for _, l := range listeners {
		notifyListener(l, v)
	}
	return snap, v
}

func notifyListener(l Listener, version int64) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DatasetListenerFailures.Inc()
			logging.Error().
				Int64("version", version).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Dataset listener panicked")
		}
	}()
	if err := l(version); err != nil {
		metrics.DatasetListenerFailures.Inc()
		logging.Warn().Err(err).Int64("version", version).Msg("Dataset listener failed")
	}
}

// Subscribe registers l for all future version changes.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Version returns the current version (0 before the first load).
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Source returns the label of the active snapshot's origin.
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// HasSnapshot reports whether a snapshot is loaded.
func (s *Store) HasSnapshot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap != nil
}

// Info describes the active snapshot without triggering a load.
func (s *Store) Info() models.DatasetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := models.DatasetInfo{Version: s.version, Source: s.source, Rows: s.snap.Rows()}
	if s.snap != nil {
		at := s.snap.LoadedAt()
		info.LoadedAt = &at
	}
	return info
}

// UseDefault switches back to the default source. When the default snapshot
// is already active nothing is reloaded and idempotent is true.
func (s *Store) UseDefault(ctx context.Context) (rows int, idempotent bool, err error) {
	s.mu.RLock()
	if s.snap != nil && s.source == models.SourceDefault {
		rows = s.snap.Rows()
		s.mu.RUnlock()
		return rows, true, nil
	}
	s.mu.RUnlock()

	snap, err := s.loader.Load(ctx)
	if err != nil {
		return 0, false, err
	}
	s.Replace(snap, models.SourceDefault)
	return snap.Rows(), false, nil
}

// Upload parses an uploaded export and makes it the active dataset.
// Failures leave the current snapshot untouched.
func (s *Store) Upload(_ context.Context, filename, contentType string, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: uploaded file is empty", models.ErrInvalidInput)
	}
	if filename == "" {
		return 0, fmt.Errorf("%w: uploaded file must have a name", models.ErrInvalidInput)
	}
	format, err := DetectFormat(filename, contentType)
	if err != nil {
		return 0, err
	}
	snap, err := Parse(bytes.NewReader(data), format)
	if err != nil {
		return 0, err
	}

	logging.Info().
		Str("filename", filename).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Int("rows", snap.Rows()).
		Msg("Parsed uploaded history")

	s.Replace(snap, models.SourceUploaded)
	return snap.Rows(), nil
}
