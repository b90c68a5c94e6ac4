// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

// Package service is the application facade behind the HTTP handlers.
//
// Every read operation resolves the active snapshot and its version as one
// pair, then serves a response memoized per (version, filter, params). The
// service subscribes to dataset replacements and drops all memoized
// responses and derived indexes when the version moves.
package service

import (
	"context"
	"time"

	"github.com/tomtom215/trackgraph/internal/analytics"
	"github.com/tomtom215/trackgraph/internal/cache"
	"github.com/tomtom215/trackgraph/internal/dataset"
	"github.com/tomtom215/trackgraph/internal/hydrate"
	"github.com/tomtom215/trackgraph/internal/logging"
	"github.com/tomtom215/trackgraph/internal/models"
)

const defaultHydrateTimeout = 15 * time.Second

// Options wires a Service.
type Options struct {
	Store    *dataset.Store
	Engine   *analytics.Engine
	Metadata hydrate.MetadataCache
	Catalog  hydrate.Fetcher
	DemoMode bool

	// HydrateTimeout bounds hydration and prewarm work, which run detached
	// from the request context.
	HydrateTimeout time.Duration

	// Prewarm receives a job after every freshly computed bubbles response.
	// Nil disables prewarming.
	Prewarm *Prewarmer
}

type bubbleKey struct {
	Filter  models.FilterKey
	GroupBy models.GroupBy
}

type historicalKey struct {
	Filter models.FilterKey
	Limit  int
}

// Service implements the API operations. Safe for concurrent use.
type Service struct {
	store    *dataset.Store
	engine   *analytics.Engine
	meta     hydrate.MetadataCache
	catalog  hydrate.Fetcher
	hydrator *hydrate.Pipeline
	demoMode bool
	timeout  time.Duration
	prewarm  *Prewarmer

	summaries  *cache.Versioned[models.FilterKey, *models.SummaryResponse]
	bubbles    *cache.Versioned[bubbleKey, *models.BubbleResponse]
	historical *cache.Versioned[historicalKey, *models.HistoricalResponse]
}

// New creates the service and subscribes it to dataset replacements.
func New(opts Options) *Service {
	timeout := opts.HydrateTimeout
	if timeout <= 0 {
		timeout = defaultHydrateTimeout
	}
	s := &Service{
		store:    opts.Store,
		engine:   opts.Engine,
		meta:     opts.Metadata,
		catalog:  opts.Catalog,
		hydrator: hydrate.New(opts.Metadata, opts.Catalog, opts.DemoMode),
		demoMode: opts.DemoMode,
		timeout:  timeout,
		prewarm:  opts.Prewarm,

		summaries:  cache.NewVersioned[models.FilterKey, *models.SummaryResponse]("summary"),
		bubbles:    cache.NewVersioned[bubbleKey, *models.BubbleResponse]("bubbles"),
		historical: cache.NewVersioned[historicalKey, *models.HistoricalResponse]("historical"),
	}
	s.store.Subscribe(s.onDatasetChange)
	return s
}

func (s *Service) onDatasetChange(version int64) error {
	s.engine.Invalidate(version)
	s.summaries.Invalidate(version)
	s.bubbles.Invalidate(version)
	s.historical.Invalidate(version)
	logging.Debug().Int64("version", version).Msg("Response caches invalidated")
	return nil
}

// DefaultHistoricalLimit is the table size used when the caller gives none.
func (s *Service) DefaultHistoricalLimit() int {
	return s.engine.Config().HistoricalDefaultLimit
}

// Summary returns the totals of the filter window.
func (s *Service) Summary(ctx context.Context, key models.FilterKey) (*models.SummaryResponse, error) {
	snap, version, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.summaries.Get(version, key, func() (*models.SummaryResponse, error) {
		start := time.Now()
		view, err := dataset.Filter(snap, key)
		if err != nil {
			return nil, err
		}
		filterMs := time.Since(start).Milliseconds()

		out := s.engine.Summary(view)
		out.Timings = models.Timings{FilterMs: filterMs, TotalMs: time.Since(start).Milliseconds()}
		return out, nil
	})
}

// Bubbles returns the hydrated bubble view for the window.
func (s *Service) Bubbles(ctx context.Context, key models.FilterKey, groupBy models.GroupBy) (*models.BubbleResponse, error) {
	return s.bubblesFor(ctx, key, groupBy, true)
}

func (s *Service) bubblesFor(ctx context.Context, key models.FilterKey, groupBy models.GroupBy, offerPrewarm bool) (*models.BubbleResponse, error) {
	snap, version, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.bubbles.Get(version, bubbleKey{key, groupBy}, func() (*models.BubbleResponse, error) {
		start := time.Now()
		view, err := dataset.Filter(snap, key)
		if err != nil {
			return nil, err
		}
		filterMs := time.Since(start).Milliseconds()

		out, err := s.engine.Aggregate(version, view, groupBy)
		if err != nil {
			return nil, err
		}

		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		hydrateStart := time.Now()
		stats := s.hydrator.Hydrate(hctx, out.Items, groupBy, &out.DerivedIndex)
		cancel()

		out.Timings.FilterMs = filterMs
		out.Timings.HydrateMs = time.Since(hydrateStart).Milliseconds()
		out.Timings.Hydrate = &stats
		out.Timings.TotalMs = time.Since(start).Milliseconds()

		if offerPrewarm {
			s.prewarm.Offer(PrewarmJob{Version: version, Filter: key, GroupBy: groupBy})
		}
		return out, nil
	})
}

// Historical returns the top-N tables for the window. limit is clamped.
func (s *Service) Historical(ctx context.Context, key models.FilterKey, limit int) (*models.HistoricalResponse, error) {
	snap, version, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	limit = s.engine.ClampLimit(limit)
	return s.historical.Get(version, historicalKey{key, limit}, func() (*models.HistoricalResponse, error) {
		start := time.Now()
		view, err := dataset.Filter(snap, key)
		if err != nil {
			return nil, err
		}
		filterMs := time.Since(start).Milliseconds()

		out, err := s.engine.Historical(version, view, limit)
		if err != nil {
			return nil, err
		}
		out.Timings.FilterMs = filterMs
		out.Timings.TotalMs = time.Since(start).Milliseconds()
		return out, nil
	})
}

// runPrewarm computes the alternate grouping and the default historical
// table for a window. Jobs for a superseded version are skipped.
func (s *Service) runPrewarm(ctx context.Context, job PrewarmJob, historicalLimit int) error {
	if s.store.Version() != job.Version {
		return errStalePrewarm
	}
	if _, err := s.bubblesFor(ctx, job.Filter, job.GroupBy.Other(), false); err != nil {
		return err
	}
	_, err := s.Historical(ctx, job.Filter, historicalLimit)
	return err
}

// UploadHistory replaces the dataset with an uploaded export.
func (s *Service) UploadHistory(ctx context.Context, filename, contentType string, data []byte) (*models.UploadResult, error) {
	rows, err := s.store.Upload(ctx, filename, contentType, data)
	if err != nil {
		return nil, err
	}
	return &models.UploadResult{Status: "ok", Rows: rows, Source: models.SourceUploaded}, nil
}

// UseDefaultHistory switches back to the default dataset.
func (s *Service) UseDefaultHistory(ctx context.Context) (*models.DefaultResult, error) {
	rows, idempotent, err := s.store.UseDefault(ctx)
	if err != nil {
		return nil, err
	}
	return &models.DefaultResult{Status: "ok", Rows: rows, Source: models.SourceDefault, Idempotent: idempotent}, nil
}

// DatasetInfo describes the active dataset without loading it.
func (s *Service) DatasetInfo() models.DatasetInfo {
	return s.store.Info()
}
