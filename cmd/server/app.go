// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/trackgraph/internal/analytics"
	"github.com/tomtom215/trackgraph/internal/api"
	"github.com/tomtom215/trackgraph/internal/blob"
	"github.com/tomtom215/trackgraph/internal/catalog"
	"github.com/tomtom215/trackgraph/internal/config"
	"github.com/tomtom215/trackgraph/internal/dataset"
	"github.com/tomtom215/trackgraph/internal/logging"
	"github.com/tomtom215/trackgraph/internal/metadata"
	"github.com/tomtom215/trackgraph/internal/service"
)

// app holds the wired components that outlive a single request.
type app struct {
	meta    *metadata.Store
	prewarm *service.Prewarmer
	svc     *service.Service
	handler http.Handler
}

// newApp builds every component from cfg. Nothing is loaded eagerly except
// the metadata cache; the dataset loads on the first request.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	var blobs blob.Store
	if cfg.Dataset.RemoteConfigured() || cfg.Metadata.RemoteConfigured() {
		s3, err := blob.NewS3(ctx, blob.S3Config{Region: cfg.AWS.Region, Endpoint: cfg.AWS.Endpoint})
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		blobs = s3
	}

	mirror, err := newMetadataMirror(cfg.Metadata)
	if err != nil {
		return nil, err
	}
	meta := metadata.Open(ctx, metadata.Options{
		Local:  mirror,
		Remote: blobs,
		Bucket: cfg.Metadata.S3Bucket,
		Key:    cfg.Metadata.S3Key,
	})

	source := dataset.NewSource(dataset.SourceConfig{
		Path:         cfg.Dataset.Path,
		FallbackPath: cfg.Dataset.FallbackPath,
		Bucket:       cfg.Dataset.S3Bucket,
		Key:          cfg.Dataset.S3Key,
		DownloadDir:  cfg.Dataset.DownloadDir,
	}, blobs)

	var prewarm *service.Prewarmer
	if cfg.Prewarm.Enabled {
		prewarm = service.NewPrewarmer(cfg.Prewarm)
	}

	svc := service.New(service.Options{
		Store:          dataset.NewStore(source),
		Engine:         analytics.New(cfg.Analytics),
		Metadata:       meta,
		Catalog:        catalog.New(cfg.Catalog),
		DemoMode:       cfg.DemoMode,
		HydrateTimeout: cfg.Catalog.Timeout,
		Prewarm:        prewarm,
	})

	if prewarm != nil {
		limit := cfg.Prewarm.HistoricalLimit
		if limit <= 0 {
			limit = svc.DefaultHistoricalLimit()
		}
		prewarm.BindService(svc, limit)
	}

	handler := api.NewHandler(svc, cfg.Server.MaxUploadBytes)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security)))

	logging.Info().
		Str("metadata_backend", cfg.Metadata.Backend).
		Int("metadata_entries", meta.Len()).
		Bool("remote_dataset", cfg.Dataset.RemoteConfigured()).
		Bool("prewarm", prewarm != nil).
		Msg("Components initialized")

	return &app{meta: meta, prewarm: prewarm, svc: svc, handler: router.SetupChi()}, nil
}

// newMetadataMirror picks the local persistence backend.
func newMetadataMirror(cfg config.MetadataConfig) (metadata.Mirror, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		if cfg.Path == "" {
			return nil, nil
		}
		return metadata.NewFileMirror(cfg.Path), nil
	case "badger":
		m, err := metadata.OpenBadgerMirror(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open metadata badger store: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", cfg.Backend)
	}
}

// Close flushes the metadata cache and releases its mirror.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.meta.Flush(ctx)
	if err := a.meta.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close metadata cache")
	}
}
