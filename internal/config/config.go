// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional config file and environment variables.
//
// Configuration Categories:
//
//  1. Data: Dataset sources, metadata cache mirrors, blob store client
//  2. Catalog: Client credentials and request shaping for the catalog API
//  3. Analytics: Bubble selection thresholds and table limits
//  4. Runtime: HTTP server, prewarm workers, security, logging
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Metadata  MetadataConfig  `koanf:"metadata"`
	AWS       AWSConfig       `koanf:"aws"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Prewarm   PrewarmConfig   `koanf:"prewarm"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`

	// DemoMode disables every outbound catalog call. Cached metadata is
	// still served.
	DemoMode bool `koanf:"demo_mode"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8000)
//   - HTTP_TIMEOUT: Read/write timeout (default: 60s)
//   - MAX_UPLOAD_SIZE: Upload limit in bytes (default: 256MiB)
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CatalogConfig holds catalog API client settings.
//
// The client-credential pair is optional. Without it the service still
// serves aggregations and whatever metadata is already cached.
type CatalogConfig struct {
	ClientID         string        `koanf:"client_id"`
	ClientSecret     string        `koanf:"client_secret"`
	TokenURL         string        `koanf:"token_url"`
	BaseURL          string        `koanf:"base_url"`
	Timeout          time.Duration `koanf:"timeout"`
	BatchSize        int           `koanf:"batch_size"`
	RequestCacheSize int           `koanf:"request_cache_size"`
	TokenRefreshSkew time.Duration `koanf:"token_refresh_skew"`
	RateLimit        float64       `koanf:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst        int           `koanf:"rate_burst"`
	MaxRetries       int           `koanf:"max_retries"`
	RetryBaseDelay   time.Duration `koanf:"retry_base_delay"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// Configured reports whether both credentials are present.
func (c CatalogConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// DatasetConfig locates the default listening history.
//
// Resolution order: remote object (bucket + key), local Path, FallbackPath.
type DatasetConfig struct {
	Path         string `koanf:"path"`
	FallbackPath string `koanf:"fallback_path"`
	S3Bucket     string `koanf:"s3_bucket"`
	S3Key        string `koanf:"s3_key"`
	DownloadDir  string `koanf:"download_dir"`
}

// RemoteConfigured reports whether the remote history object is set.
func (d DatasetConfig) RemoteConfigured() bool {
	return d.S3Bucket != "" && d.S3Key != ""
}

// MetadataConfig configures the persistent catalog metadata cache.
//
// Backend is "file" (pretty JSON, default) or "badger".
type MetadataConfig struct {
	Backend   string `koanf:"backend"`
	Path      string `koanf:"path"`
	BadgerDir string `koanf:"badger_dir"`
	S3Bucket  string `koanf:"s3_bucket"`
	S3Key     string `koanf:"s3_key"`
}

// RemoteConfigured reports whether the remote mirror is enabled.
func (m MetadataConfig) RemoteConfigured() bool {
	return m.S3Bucket != "" && m.S3Key != ""
}

// AWSConfig holds blob store client settings.
type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"` // S3-compatible endpoint override (MinIO, LocalStack)
}

// AnalyticsConfig holds bubble selection and table limits.
type AnalyticsConfig struct {
	ThresholdMs            int64 `koanf:"threshold_ms"`
	MaxItems               int   `koanf:"max_items"`
	FallbackItems          int   `koanf:"fallback_items"`
	TopTracks              int   `koanf:"top_tracks"`
	HistoricalDefaultLimit int   `koanf:"historical_default_limit"`
	HistoricalMaxLimit     int   `koanf:"historical_max_limit"`
}

// PrewarmConfig sizes the background prewarm pool.
type PrewarmConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Workers         int           `koanf:"workers"`
	QueueSize       int           `koanf:"queue_size"`
	Timeout         time.Duration `koanf:"timeout"`
	HistoricalLimit int           `koanf:"historical_limit"`
}

// SecurityConfig holds CORS and rate-limit settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from (in order of increasing priority):
//  1. Built-in defaults
//  2. Config file (CONFIG_PATH or one of DefaultConfigPaths)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
