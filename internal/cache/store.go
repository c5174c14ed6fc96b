// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// cacheKeyPrefix namespaces cache entries in BadgerDB.
const cacheKeyPrefix = "cache:"

// Store is the durable cache tier backed by BadgerDB. Entries are stored as
// JSON under prefixed keys so the database can be shared with other
// concerns later without key collisions.
type Store struct {
	db *badger.DB
}

// OpenStore opens a BadgerDB-backed store at the given path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logger is too chatty for a cache tier

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStore wraps an already-open BadgerDB.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Get retrieves an entry by key. Returns (nil, nil) when absent.
func (s *Store) Get(key string) (*Entry, error) {
	var entry Entry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	return &entry, nil
}

// Set stores an entry, overwriting any existing value.
func (s *Store) Set(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cacheKeyPrefix+entry.Key), data)
	})
}

// Delete removes an entry by key. Absent keys are not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(cacheKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Clear removes all cache entries.
func (s *Store) Clear() error {
	return s.db.DropPrefix([]byte(cacheKeyPrefix))
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Healthy reports whether the underlying database is usable.
func (s *Store) Healthy() bool {
	return s.db != nil && !s.db.IsClosed()
}
