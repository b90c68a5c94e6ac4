// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package dataset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tomtom215/trackgraph/internal/blob"
	"github.com/tomtom215/trackgraph/internal/logging"
	"github.com/tomtom215/trackgraph/internal/metrics"
	"github.com/tomtom215/trackgraph/internal/models"
)

// Loader produces the default snapshot.
type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// SourceConfig locates the default history.
type SourceConfig struct {
	Path         string
	FallbackPath string
	Bucket       string
	Key          string
	DownloadDir  string
}

// Source resolves the default history file and parses it.
//
// When a remote bucket and key are configured the object is downloaded to a
// temp file. The ETag of the last download is remembered so an unchanged
// object is not fetched again.
type Source struct {
	cfg   SourceConfig
	blobs blob.Store

	mu         sync.Mutex
	cachedETag string
	cachedPath string
}

// NewSource creates a resolver. blobs may be nil when no remote is configured.
func NewSource(cfg SourceConfig, blobs blob.Store) *Source {
	return &Source{cfg: cfg, blobs: blobs}
}

func (s *Source) remoteConfigured() bool {
	return s.blobs != nil && s.cfg.Bucket != "" && s.cfg.Key != ""
}

// Resolve returns a local path holding the default history.
func (s *Source) Resolve(ctx context.Context) (string, error) {
	if s.remoteConfigured() {
		return s.resolveRemote(ctx)
	}
	if s.cfg.Path != "" && fileExists(s.cfg.Path) {
		return s.cfg.Path, nil
	}
	if s.cfg.FallbackPath != "" && fileExists(s.cfg.FallbackPath) {
		return s.cfg.FallbackPath, nil
	}
	return "", fmt.Errorf("%w: set SPOTIFY_HISTORY_PATH or configure a remote bucket", models.ErrDatasetUnavailable)
}

func (s *Source) resolveRemote(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.blobs.Head(ctx, s.cfg.Bucket, s.cfg.Key)
	if err != nil {
		metrics.DatasetDownloads.WithLabelValues("error").Inc()
		if errors.Is(err, blob.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", models.ErrDatasetUnavailable, err)
		}
		return "", fmt.Errorf("unable to access remote history object: %w", err)
	}

	if info.ETag != "" && info.ETag == s.cachedETag && fileExists(s.cachedPath) {
		metrics.DatasetDownloads.WithLabelValues("reused").Inc()
		return s.cachedPath, nil
	}

	suffix := filepath.Ext(s.cfg.Key)
	if suffix == "" {
		suffix = ".csv"
	}
	tmp, err := os.CreateTemp(s.cfg.DownloadDir, "spotify_history_*"+suffix)
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()

	if err := s.blobs.Download(ctx, s.cfg.Bucket, s.cfg.Key, path); err != nil {
		_ = os.Remove(path)
		metrics.DatasetDownloads.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to download history: %w", err)
	}

	if s.cachedPath != "" && s.cachedPath != path {
		_ = os.Remove(s.cachedPath)
	}
	s.cachedETag, s.cachedPath = info.ETag, path
	metrics.DatasetDownloads.WithLabelValues("downloaded").Inc()
	logging.Info().
		Str("bucket", s.cfg.Bucket).
		Str("key", s.cfg.Key).
		Str("etag", info.ETag).
		Msg("Downloaded listening history")
	return path, nil
}

// Load implements Loader. JSON files are detected by extension; everything
// else is read as CSV.
func (s *Source) Load(ctx context.Context) (*Snapshot, error) {
	path, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open history %s: %v", models.ErrDatasetUnavailable, path, err)
	}
	defer f.Close()

	format := FormatCSV
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	snap, err := Parse(bufio.NewReader(f), format)
	if err != nil {
		// A broken default file is a server problem, not a bad request.
		logging.Error().Err(err).Str("path", path).Msg("Default history could not be parsed")
		return nil, fmt.Errorf("%w: default history %s is malformed: %v", models.ErrDatasetUnavailable, path, err)
	}
	return snap, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
