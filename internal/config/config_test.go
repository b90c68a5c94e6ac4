// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"half credentials", func(c *Config) { c.Catalog.ClientID = "id" }, "must be set together"},
		{"full credentials", func(c *Config) {
			c.Catalog.ClientID = "id"
			c.Catalog.ClientSecret = "secret"
		}, ""},
		{"batch too large", func(c *Config) { c.Catalog.BatchSize = 51 }, "CATALOG_BATCH_SIZE"},
		{"token url scheme", func(c *Config) { c.Catalog.TokenURL = "ftp://x" }, "SPOTIFY_TOKEN_URL"},
		{"bucket without key", func(c *Config) { c.Dataset.S3Bucket = "b" }, "SPOTIFY_HISTORY_S3_KEY"},
		{"unknown backend", func(c *Config) { c.Metadata.Backend = "redis" }, "SPOTIFY_IMAGE_CACHE_BACKEND"},
		{"badger backend", func(c *Config) { c.Metadata.Backend = "badger" }, ""},
		{"threshold", func(c *Config) { c.Analytics.ThresholdMs = 0 }, "BUBBLE_THRESHOLD_MS"},
		{"historical default above max", func(c *Config) { c.Analytics.HistoricalDefaultLimit = 900 }, "HISTORICAL_DEFAULT_LIMIT"},
		{"prewarm workers", func(c *Config) { c.Prewarm.Workers = 0 }, "PREWARM_WORKERS"},
		{"prewarm disabled ignores workers", func(c *Config) {
			c.Prewarm.Enabled = false
			c.Prewarm.Workers = 0
		}, ""},
		{"rate limit", func(c *Config) { c.Security.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDerivedDefaults(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Dataset.S3Bucket = "history"
	cfg.applyDerivedDefaults()
	if cfg.Metadata.S3Bucket != "history" {
		t.Errorf("Metadata.S3Bucket = %q, want history", cfg.Metadata.S3Bucket)
	}

	cfg = defaultConfig()
	cfg.Dataset.S3Bucket = "history"
	cfg.Metadata.S3Bucket = "images"
	cfg.applyDerivedDefaults()
	if cfg.Metadata.S3Bucket != "images" {
		t.Errorf("Metadata.S3Bucket = %q, explicit value should win", cfg.Metadata.S3Bucket)
	}
}

func TestServerAddr(t *testing.T) {
	t.Parallel()
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestValidateHTTPURL(t *testing.T) {
	t.Parallel()
	valid := []string{"https://api.spotify.com/v1", "http://localhost:8080"}
	for _, u := range valid {
		if err := validateHTTPURL(u, "X"); err != nil {
			t.Errorf("validateHTTPURL(%q) unexpected error: %v", u, err)
		}
	}
	invalid := []string{"", "api.spotify.com", "https://", "https://host/path?q=1"}
	for _, u := range invalid {
		if err := validateHTTPURL(u, "X"); err == nil {
			t.Errorf("validateHTTPURL(%q) should fail", u)
		}
	}
}
