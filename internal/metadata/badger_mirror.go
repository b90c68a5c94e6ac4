// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package metadata

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/trackgraph/internal/models"
)

// Key prefix for entity records
const entityKeyPrefix = "meta:"

// BadgerMirror stores one record per entity under "meta:<id>".
type BadgerMirror struct {
	db *badger.DB
}

// OpenBadgerMirror opens (or creates) a BadgerDB database in dir.
func OpenBadgerMirror(dir string) (*BadgerMirror, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open metadata badger: %w", err)
	}
	return &BadgerMirror{db: db}, nil
}

// NewBadgerMirror wraps an already open database.
func NewBadgerMirror(db *badger.DB) *BadgerMirror {
	return &BadgerMirror{db: db}
}

// Load reads every entity record. Records that do not decode are skipped.
func (m *BadgerMirror) Load() (map[string]*models.Entity, error) {
	out := make(map[string]*models.Entity)
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(entityKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), entityKeyPrefix)
			err := item.Value(func(val []byte) error {
				var e models.Entity
				if json.Unmarshal(val, &e) != nil {
					return nil
				}
				if e.ID == "" {
					e.ID = id
				}
				out[id] = &e
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load metadata badger: %w", err)
	}
	return out, nil
}

// Save makes the database hold exactly entries.
func (m *BadgerMirror) Save(entries map[string]*models.Entity) error {
	var stale [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(entityKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, ok := entries[strings.TrimPrefix(string(key), entityKeyPrefix)]; !ok {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan metadata badger: %w", err)
	}

	wb := m.db.NewWriteBatch()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			wb.Cancel()
			return fmt.Errorf("delete stale entity: %w", err)
		}
	}
	for id, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			wb.Cancel()
			return fmt.Errorf("marshal entity %s: %w", id, err)
		}
		if err := wb.Set([]byte(entityKeyPrefix+id), data); err != nil {
			wb.Cancel()
			return fmt.Errorf("set entity %s: %w", id, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush metadata badger: %w", err)
	}
	return nil
}

// Close closes the database.
func (m *BadgerMirror) Close() error {
	return m.db.Close()
}
