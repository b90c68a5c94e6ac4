// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

// Package analytics computes the aggregates served by the API: window
// totals, artist and album bubbles, and top-N historical tables.
//
// All computations are pure functions of a filtered dataset view. The
// derived index is memoized per (dataset version, filter key).
package analytics

import (
	"math"
	"time"

	"github.com/tomtom215/trackgraph/internal/cache"
	"github.com/tomtom215/trackgraph/internal/config"
	"github.com/tomtom215/trackgraph/internal/dataset"
	"github.com/tomtom215/trackgraph/internal/models"
)

const msPerHour = 3_600_000

// Engine computes aggregates. Safe for concurrent use.
type Engine struct {
	cfg   config.AnalyticsConfig
	index *cache.Versioned[models.FilterKey, *models.DerivedIndex]
}

// DefaultConfig returns the stock selection thresholds.
func DefaultConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		ThresholdMs:            msPerHour,
		MaxItems:               160,
		FallbackItems:          120,
		TopTracks:              5,
		HistoricalDefaultLimit: 200,
		HistoricalMaxLimit:     500,
	}
}

// New creates an engine. Zero fields of cfg take their defaults.
func New(cfg config.AnalyticsConfig) *Engine {
	def := DefaultConfig()
	if cfg.ThresholdMs <= 0 {
		cfg.ThresholdMs = def.ThresholdMs
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = def.MaxItems
	}
	if cfg.FallbackItems <= 0 {
		cfg.FallbackItems = def.FallbackItems
	}
	if cfg.TopTracks <= 0 {
		cfg.TopTracks = def.TopTracks
	}
	if cfg.HistoricalDefaultLimit <= 0 {
		cfg.HistoricalDefaultLimit = def.HistoricalDefaultLimit
	}
	if cfg.HistoricalMaxLimit <= 0 {
		cfg.HistoricalMaxLimit = def.HistoricalMaxLimit
	}
	return &Engine{
		cfg:   cfg,
		index: cache.NewVersioned[models.FilterKey, *models.DerivedIndex]("derived_index"),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() config.AnalyticsConfig {
	return e.cfg
}

// Index returns the derived index for the view, memoized per version.
func (e *Engine) Index(version int64, view *dataset.View) (*models.DerivedIndex, error) {
	return e.index.Get(version, view.Key, func() (*models.DerivedIndex, error) {
		return BuildIndex(view.Events), nil
	})
}

// Invalidate drops memoized indexes older than version.
func (e *Engine) Invalidate(version int64) {
	e.index.Invalidate(version)
}

// Summary returns the totals of the view.
func (e *Engine) Summary(view *dataset.View) *models.SummaryResponse {
	total := view.TotalMs()
	return &models.SummaryResponse{
		TotalMs:    total,
		TotalHours: ToHours(total),
		TotalPlays: view.Plays(),
		Start:      view.Key.Start,
		End:        view.Key.End,
	}
}

// ToHours converts milliseconds to hours rounded to three decimals.
func ToHours(ms int64) float64 {
	return math.Round(float64(ms)/msPerHour*1000) / 1000
}

func sinceMs(t time.Time) int64 {
	return time.Since(t).Milliseconds()
}
