// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package blob

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // ETag compatibility, not security
	"encoding/hex"
	"fmt"
	"sync"
)

// Memory is an in-process Store. ETags are quoted MD5 digests like S3's
// single-part uploads.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   map[string]int

	// Failure injection for tests. A non-nil error is returned by every call
	// of that operation.
	HeadErr error
	GetErr  error
	PutErr  error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		calls:   make(map[string]int),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

// Head implements Store.
func (m *Memory) Head(_ context.Context, bucket, key string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["head"]++
	if m.HeadErr != nil {
		return ObjectInfo{}, m.HeadErr
	}
	data, ok := m.objects[objectKey(bucket, key)]
	if !ok {
		return ObjectInfo{}, fmt.Errorf("memory://%s/%s: %w", bucket, key, ErrNotFound)
	}
	return ObjectInfo{ETag: etag(data), Size: int64(len(data))}, nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get"]++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	data, ok := m.objects[objectKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("memory://%s/%s: %w", bucket, key, ErrNotFound)
	}
	return bytes.Clone(data), nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, bucket, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["put"]++
	if m.PutErr != nil {
		return m.PutErr
	}
	m.objects[objectKey(bucket, key)] = bytes.Clone(data)
	return nil
}

// Download implements Store.
func (m *Memory) Download(ctx context.Context, bucket, key, path string) error {
	m.mu.Lock()
	m.calls["download"]++
	m.mu.Unlock()

	data, err := m.Get(ctx, bucket, key)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, bytes.NewReader(data))
}

// Calls returns how often op ("head", "get", "put", "download") was invoked.
// Download also counts one get.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func etag(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // ETag compatibility
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
