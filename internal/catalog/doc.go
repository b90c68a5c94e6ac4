// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package catalog is the HTTP client for the external music catalog.

It resolves track and artist ids into full entities using two batch
endpoints:

	GET {base}/tracks?ids=a,b,c    -> {"tracks":  [ {...}, null, ... ]}
	GET {base}/artists?ids=a,b,c   -> {"artists": [ {...}, ... ]}

Ids are sent in batches of at most 50. Unknown ids come back as null and are
skipped. A call either returns every batch or fails as a whole.

# Authentication

Access tokens come from the client-credentials grant (HTTP basic auth with
the client id and secret). A token is reused until less than the refresh
skew (default 60s) remains, and concurrent refreshes are collapsed into one
request.

# Resilience

  - golang.org/x/time/rate limits outbound requests
  - sony/gobreaker/v2 opens after 60% failures over at least 10 requests
  - 429 and 5xx responses are retried with exponential backoff, honoring
    Retry-After
  - every call is bounded by the configured timeout (default 15s)

All failures are reported as models.ErrUpstream, and missing credentials as
models.ErrNotConfigured.

# Request Cache

Successful results are memoized per exact request shape (kind plus ordered
id list) in a hashicorp/golang-lru/v2 cache, and identical concurrent calls
share one flight.
*/
package catalog
