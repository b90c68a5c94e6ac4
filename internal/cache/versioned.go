// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package cache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/trackgraph/internal/metrics"
)

type entry[V any] struct {
	version int64
	value   V
}

// Versioned memoizes values per exact (version, key). Safe for concurrent use.
type Versioned[K comparable, V any] struct {
	name string

	mu      sync.Mutex
	entries map[K]entry[V]
	floor   int64

	group singleflight.Group
}

// NewVersioned creates an empty cache. name labels its metrics.
func NewVersioned[K comparable, V any](name string) *Versioned[K, V] {
	return &Versioned[K, V]{
		name:    name,
		entries: make(map[K]entry[V]),
	}
}

// Name returns the metrics label of the cache.
func (c *Versioned[K, V]) Name() string {
	return c.name
}

// Get returns the value stored for (version, key), or runs compute and
// stores its result. Errors are returned and never cached.
func (c *Versioned[K, V]) Get(version int64, key K, compute func() (V, error)) (V, error) {
	if v, ok := c.lookup(version, key); ok {
		metrics.RecordCacheLookup(c.name, true)
		return v, nil
	}
	metrics.RecordCacheLookup(c.name, false)

	res, err, _ := c.group.Do(flightKey(version, key), func() (any, error) {
		// A concurrent flight may have stored the value since the lookup above.
		if v, ok := c.lookup(version, key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(version, key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Peek returns the value for (version, key) without computing or counting.
func (c *Versioned[K, V]) Peek(version int64, key K) (V, bool) {
	return c.lookup(version, key)
}

func (c *Versioned[K, V]) lookup(version int64, key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.version != version || version < c.floor {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Versioned[K, V]) store(version int64, key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version < c.floor {
		return
	}
	if e, ok := c.entries[key]; ok && e.version > version {
		return
	}
	c.entries[key] = entry[V]{version: version, value: v}
}

// Invalidate drops all entries and refuses values for versions below version.
func (c *Versioned[K, V]) Invalidate(version int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	if version > c.floor {
		c.floor = version
	}
	metrics.CacheInvalidations.WithLabelValues(c.name).Inc()
}

// Clear drops all entries without moving the floor.
func (c *Versioned[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of stored entries.
func (c *Versioned[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Floor returns the lowest version the cache will store.
func (c *Versioned[K, V]) Floor() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.floor
}

func flightKey[K comparable](version int64, key K) string {
	return fmt.Sprintf("%d|%#v", version, key)
}
