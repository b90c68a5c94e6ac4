// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tomtom215/trackgraph/internal/models"
)

// FileMirror persists the map as one pretty-printed JSON document.
type FileMirror struct {
	path string
}

// NewFileMirror returns a mirror backed by the file at path.
func NewFileMirror(path string) *FileMirror {
	return &FileMirror{path: path}
}

// Load reads the file. A missing file is an empty map.
func (m *FileMirror) Load() (map[string]*models.Entity, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*models.Entity{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata file: %w", err)
	}
	return decodeEntries(data), nil
}

// Save writes the map to a temp file in the same directory and renames it
// over the target.
func (m *FileMirror) Save(entries map[string]*models.Entity) error {
	data, err := encodeEntries(entries)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace metadata file: %w", err)
	}
	return nil
}

// Close implements Mirror.
func (m *FileMirror) Close() error { return nil }
