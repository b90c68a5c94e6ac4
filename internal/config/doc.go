// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package config provides centralized configuration management for TrackGraph.

Configuration is layered with Koanf v2:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, config.yaml, /etc/trackgraph/config.yaml)
 3. Environment variables

A .env file next to the binary or in the working directory is read first with
godotenv; it never overrides variables that are already set.

# Environment Variables

Catalog:
  - SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET: client-credential pair
  - CATALOG_TIMEOUT: per-request timeout (default: 15s)
  - CATALOG_BATCH_SIZE: ids per batch request (default: 50)
  - CATALOG_REQUEST_CACHE_SIZE: request-shape LRU size (default: 4000)
  - DEMO_MODE: never call the catalog (default: false)

Dataset:
  - SPOTIFY_HISTORY_PATH: local history file
  - SPOTIFY_HISTORY_S3_BUCKET, SPOTIFY_HISTORY_S3_KEY: remote history object
  - AWS_REGION, AWS_ENDPOINT_URL: blob store client settings

Metadata cache:
  - SPOTIFY_IMAGE_CACHE_PATH: local JSON mirror (default: data/static_data.json)
  - SPOTIFY_IMAGE_CACHE_BACKEND: file or badger
  - SPOTIFY_IMAGE_CACHE_S3_BUCKET: remote mirror bucket (default: history bucket)
  - SPOTIFY_IMAGE_CACHE_S3_KEY: remote mirror key (default: static_data.json)

Analytics:
  - BUBBLE_THRESHOLD_MS, BUBBLE_MAX_ITEMS, BUBBLE_FALLBACK_ITEMS
  - HISTORICAL_DEFAULT_LIMIT, HISTORICAL_MAX_LIMIT

Server, security and logging:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, MAX_UPLOAD_SIZE
  - CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Config is immutable after Load and safe for concurrent reads.
*/
package config
