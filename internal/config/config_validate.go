// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateCatalog(); err != nil {
		return err
	}

	if err := c.validateData(); err != nil {
		return err
	}

	if err := c.validateAnalytics(); err != nil {
		return err
	}

	if err := c.validatePrewarm(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

// validateCatalog validates catalog client settings. Credentials are
// optional but must come as a pair.
func (c *Config) validateCatalog() error {
	cat := c.Catalog
	if (cat.ClientID == "") != (cat.ClientSecret == "") {
		return fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set together")
	}
	if err := validateHTTPURL(cat.TokenURL, "SPOTIFY_TOKEN_URL"); err != nil {
		return err
	}
	if err := validateHTTPURL(cat.BaseURL, "SPOTIFY_API_BASE_URL"); err != nil {
		return err
	}
	if cat.Timeout <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT must be positive")
	}
	if cat.BatchSize < 1 || cat.BatchSize > 50 {
		return fmt.Errorf("CATALOG_BATCH_SIZE must be between 1 and 50, got %d", cat.BatchSize)
	}
	if cat.RequestCacheSize < 1 {
		return fmt.Errorf("CATALOG_REQUEST_CACHE_SIZE must be positive, got %d", cat.RequestCacheSize)
	}
	if cat.RateLimit < 0 {
		return fmt.Errorf("CATALOG_RATE_LIMIT must not be negative")
	}
	if cat.MaxRetries < 0 {
		return fmt.Errorf("CATALOG_MAX_RETRIES must not be negative")
	}
	return nil
}

func (c *Config) validateData() error {
	if c.Dataset.S3Bucket != "" && c.Dataset.S3Key == "" {
		return fmt.Errorf("SPOTIFY_HISTORY_S3_KEY is required when SPOTIFY_HISTORY_S3_BUCKET is set")
	}
	switch strings.ToLower(c.Metadata.Backend) {
	case "file":
		if c.Metadata.Path == "" {
			return fmt.Errorf("SPOTIFY_IMAGE_CACHE_PATH is required for the file backend")
		}
	case "badger":
		if c.Metadata.BadgerDir == "" {
			return fmt.Errorf("SPOTIFY_IMAGE_CACHE_BADGER_DIR is required for the badger backend")
		}
	default:
		return fmt.Errorf("SPOTIFY_IMAGE_CACHE_BACKEND must be 'file' or 'badger', got %q", c.Metadata.Backend)
	}
	return nil
}

func (c *Config) validateAnalytics() error {
	a := c.Analytics
	if a.ThresholdMs <= 0 {
		return fmt.Errorf("BUBBLE_THRESHOLD_MS must be positive")
	}
	if a.MaxItems < 1 || a.FallbackItems < 1 || a.TopTracks < 1 {
		return fmt.Errorf("bubble item limits must be positive")
	}
	if a.HistoricalMaxLimit < 1 {
		return fmt.Errorf("HISTORICAL_MAX_LIMIT must be positive")
	}
	if a.HistoricalDefaultLimit < 1 || a.HistoricalDefaultLimit > a.HistoricalMaxLimit {
		return fmt.Errorf("HISTORICAL_DEFAULT_LIMIT must be between 1 and %d, got %d",
			a.HistoricalMaxLimit, a.HistoricalDefaultLimit)
	}
	return nil
}

func (c *Config) validatePrewarm() error {
	if !c.Prewarm.Enabled {
		return nil
	}
	if c.Prewarm.Workers < 1 {
		return fmt.Errorf("PREWARM_WORKERS must be at least 1")
	}
	if c.Prewarm.QueueSize < 1 {
		return fmt.Errorf("PREWARM_QUEUE_SIZE must be at least 1")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
