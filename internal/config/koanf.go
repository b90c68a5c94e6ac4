// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trackgraph/config.yaml",
	"/etc/trackgraph/config.yml",
}

// DotEnvPaths lists .env files loaded before the environment layer.
// Variables already present in the process environment win.
var DotEnvPaths = []string{
	".env",
	"backend/.env",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default catalog endpoints.
const (
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultBaseURL  = "https://api.spotify.com/v1"
)

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Timeout:         60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  256 << 20,
		},
		Catalog: CatalogConfig{
			TokenURL:         DefaultTokenURL,
			BaseURL:          DefaultBaseURL,
			Timeout:          15 * time.Second,
			BatchSize:        50,
			RequestCacheSize: 4000,
			TokenRefreshSkew: 60 * time.Second,
			RateLimit:        10,
			RateBurst:        5,
			MaxRetries:       2,
			RetryBaseDelay:   500 * time.Millisecond,
			BreakerTimeout:   30 * time.Second,
		},
		Dataset: DatasetConfig{
			Path:        "data/cleaned_streaming_history.csv",
			DownloadDir: os.TempDir(),
		},
		Metadata: MetadataConfig{
			Backend:   "file",
			Path:      "data/static_data.json",
			BadgerDir: "data/metadata",
			S3Key:     "static_data.json",
		},
		Analytics: AnalyticsConfig{
			ThresholdMs:            3_600_000,
			MaxItems:               160,
			FallbackItems:          120,
			TopTracks:              5,
			HistoricalDefaultLimit: 200,
			HistoricalMaxLimit:     500,
		},
		Prewarm: PrewarmConfig{
			Enabled:         true,
			Workers:         2,
			QueueSize:       64,
			Timeout:         2 * time.Minute,
			HistoricalLimit: 200,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting (.env files included)
func LoadWithKoanf() (*Config, error) {
	loadDotEnv()

	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyDerivedDefaults fills settings whose default depends on another one.
func (c *Config) applyDerivedDefaults() {
	if c.Metadata.S3Bucket == "" {
		c.Metadata.S3Bucket = c.Dataset.S3Bucket
	}
	if c.Metadata.Backend == "" {
		c.Metadata.Backend = "file"
	}
}

// loadDotEnv reads the first-found .env files without overriding existing variables.
func loadDotEnv() {
	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// The SPOTIFY_* names are kept from the original deployment scripts.
var envMappings = map[string]string{
	// Catalog
	"spotify_client_id":          "catalog.client_id",
	"spotify_client_secret":      "catalog.client_secret",
	"spotify_token_url":          "catalog.token_url",
	"spotify_api_base_url":       "catalog.base_url",
	"catalog_timeout":            "catalog.timeout",
	"catalog_batch_size":         "catalog.batch_size",
	"catalog_request_cache_size": "catalog.request_cache_size",
	"catalog_token_refresh_skew": "catalog.token_refresh_skew",
	"catalog_rate_limit":         "catalog.rate_limit",
	"catalog_rate_burst":         "catalog.rate_burst",
	"catalog_max_retries":        "catalog.max_retries",
	"catalog_retry_base_delay":   "catalog.retry_base_delay",
	"catalog_breaker_timeout":    "catalog.breaker_timeout",
	"demo_mode":                  "demo_mode",

	// Dataset
	"spotify_history_path":          "dataset.path",
	"spotify_history_fallback_path": "dataset.fallback_path",
	"spotify_history_s3_bucket":     "dataset.s3_bucket",
	"spotify_history_s3_key":        "dataset.s3_key",
	"spotify_history_download_dir":  "dataset.download_dir",

	// Metadata cache
	"spotify_image_cache_backend":    "metadata.backend",
	"spotify_image_cache_path":       "metadata.path",
	"spotify_image_cache_badger_dir": "metadata.badger_dir",
	"spotify_image_cache_s3_bucket":  "metadata.s3_bucket",
	"spotify_image_cache_s3_key":     "metadata.s3_key",

	// Blob store client
	"aws_region":       "aws.region",
	"aws_endpoint_url": "aws.endpoint",

	// Analytics
	"bubble_threshold_ms":      "analytics.threshold_ms",
	"bubble_max_items":         "analytics.max_items",
	"bubble_fallback_items":    "analytics.fallback_items",
	"bubble_top_tracks":        "analytics.top_tracks",
	"historical_default_limit": "analytics.historical_default_limit",
	"historical_max_limit":     "analytics.historical_max_limit",

	// Prewarm
	"prewarm_enabled":          "prewarm.enabled",
	"prewarm_workers":          "prewarm.workers",
	"prewarm_queue_size":       "prewarm.queue_size",
	"prewarm_timeout":          "prewarm.timeout",
	"prewarm_historical_limit": "prewarm.historical_limit",

	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"max_upload_size":  "server.max_upload_bytes",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped.
//
// Examples:
//   - SPOTIFY_CLIENT_ID -> catalog.client_id
//   - SPOTIFY_HISTORY_S3_BUCKET -> dataset.s3_bucket
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
