// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package api

import (
	"context"
	"time"

	"github.com/tomtom215/trackgraph/internal/models"
)

// defaultMaxUploadBytes applies when the handler is built without a limit.
const defaultMaxUploadBytes = 256 << 20

// Service is the application layer behind the handlers.
type Service interface {
	Summary(ctx context.Context, key models.FilterKey) (*models.SummaryResponse, error)
	Bubbles(ctx context.Context, key models.FilterKey, groupBy models.GroupBy) (*models.BubbleResponse, error)
	Historical(ctx context.Context, key models.FilterKey, limit int) (*models.HistoricalResponse, error)
	DefaultHistoricalLimit() int

	UploadHistory(ctx context.Context, filename, contentType string, data []byte) (*models.UploadResult, error)
	UseDefaultHistory(ctx context.Context) (*models.DefaultResult, error)
	DatasetInfo() models.DatasetInfo

	TracksBatch(ctx context.Context, ids []string) (*models.TracksBatchResponse, error)
	ArtistsBatch(ctx context.Context, ids []string) (*models.ArtistsBatchResponse, error)
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_health.go: liveness endpoints
//   - handlers_analytics.go: summary, bubbles, historical
//   - handlers_history.go: dataset inspection and replacement
//   - handlers_catalog.go: catalog batch lookups
type Handler struct {
	svc            Service
	maxUploadBytes int64
	startTime      time.Time
}

// NewHandler creates a handler. maxUploadBytes bounds multipart uploads;
// zero or less takes the default.
func NewHandler(svc Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		startTime:      time.Now(),
	}
}
