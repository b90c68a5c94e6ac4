// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package cache provides version-tagged memoization for derived data.

Every value is stored together with the dataset version it was computed
from. A lookup only hits when both the key and the version match, so a
reader holding an older snapshot never sees results computed for a newer
one, and vice versa.

# Usage

	idx := cache.NewVersioned[models.FilterKey, *models.DerivedIndex]("derived_index")

	value, err := idx.Get(version, key, func() (*models.DerivedIndex, error) {
	    return buildIndex(view), nil
	})

	// On every dataset replacement:
	store.Subscribe(func(v int64) error {
	    idx.Invalidate(v)
	    return nil
	})

# Invalidation Floor

Invalidate clears all entries and raises a floor to the given version.
A computation that started under an older version and finishes after the
clear is returned to its caller but not stored, so stale values cannot
reappear. Notifications may arrive out of order; the floor only moves up.

# Concurrency

Identical concurrent misses for the same (version, key) are coalesced with
golang.org/x/sync/singleflight, so compute runs once per miss burst.

# Metrics

Hits, misses and invalidations are exported per cache name:
  - trackgraph_cache_hits_total{cache}
  - trackgraph_cache_misses_total{cache}
  - trackgraph_cache_invalidations_total{cache}
*/
package cache
