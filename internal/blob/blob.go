// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

// Package blob provides the remote object store used for the listening
// history download and the metadata cache mirror.
//
// Two implementations exist: S3 (aws-sdk-go-v2, also S3-compatible endpoints
// such as MinIO) and Memory (tests, local development).
package blob

import (
	"context"
	"errors"
)

// ErrNotFound indicates the bucket/key does not exist.
var ErrNotFound = errors.New("blob: object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	ETag string
	Size int64
}

// Store is a minimal object store.
type Store interface {
	// Head returns object metadata without downloading the body.
	Head(ctx context.Context, bucket, key string) (ObjectInfo, error)

	// Get reads the whole object.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put writes the whole object.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error

	// Download streams the object into the file at path, replacing it.
	Download(ctx context.Context, bucket, key, path string) error
}
