// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package main is the entry point for the TrackGraph server.

TrackGraph turns a personal listening-history export into bubble charts and
ranking tables, enriching them with cover art and portraits from the music
catalog.

# Application Architecture

	RootSupervisor ("trackgraph")
	├── DataSupervisor ("data-layer")
	│   └── Prewarmer (PREWARM_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, .env, environment)
 2. Logging: zerolog global logger
 3. Blob store: S3 client when a dataset or metadata bucket is set
 4. Metadata cache: file or Badger mirror plus the optional S3 mirror
 5. Catalog client: token cache, rate limiter, circuit breaker
 6. Dataset store: lazy default load, uploads replace it
 7. Service: memoized summary, bubbles and historical views
 8. HTTP server and supervisor tree

# Flags

	--config PATH     config file (overrides CONFIG_PATH)
	--log-level LVL   overrides LOG_LEVEL

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for
SERVER_SHUTDOWN_TIMEOUT, the prewarm workers stop, and the metadata cache is
flushed and closed.
*/
package main
