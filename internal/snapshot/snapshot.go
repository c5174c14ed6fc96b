// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package snapshot reads and writes the offline-generated JSON files that
// stand in for live API responses in static mode. Each snapshot wraps its
// record array in the upstream response envelope so consumers can parse
// live and snapshot data identically, and carries a metadata block with the
// fetch timestamp and item count.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/models"
)

// StaleAfter is how old a snapshot may be before a freshness warning is
// logged. Staleness is advisory only and never blocks use of the data.
const StaleAfter = 24 * time.Hour

// Metadata is the snapshot's provenance block.
type Metadata struct {
	LastFetched time.Time `json:"lastFetched"`
	ItemCount   int       `json:"itemCount"`
}

// Stale reports whether the snapshot is older than StaleAfter.
func (m *Metadata) Stale(now time.Time) bool {
	return now.Sub(m.LastFetched) > StaleAfter
}

type envelope[T any] struct {
	Response envelopeResponse[T] `json:"response"`
	Metadata Metadata            `json:"_metadata"`
}

type envelopeResponse[T any] struct {
	Data envelopeData[T] `json:"data"`
}

type envelopeData[T any] struct {
	Data []T `json:"data"`
}

// PathFor returns the snapshot file path for a content type.
func PathFor(dir string, contentType models.ContentType) string {
	return filepath.Join(dir, string(contentType)+".json")
}

// Write persists a record array as a snapshot file. The write goes to a
// temp file in the same directory and is renamed into place so a reader
// never observes a torn file.
func Write[T any](path string, records []T, fetchedAt time.Time) error {
	env := envelope[T]{
		Metadata: Metadata{
			LastFetched: fetchedAt,
			ItemCount:   len(records),
		},
	}
	env.Response.Data.Data = records

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

// Read loads a snapshot file, returning its records and metadata. A
// snapshot older than StaleAfter logs an advisory warning but is still
// returned.
func Read[T any](path string) ([]T, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("read snapshot: %w", err)
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, Metadata{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	if env.Metadata.Stale(time.Now()) {
		logging.Warn().
			Str("path", path).
			Time("last_fetched", env.Metadata.LastFetched).
			Msg("Snapshot is older than 24 hours, consider re-running the fetch tool")
	}

	return env.Response.Data.Data, env.Metadata, nil
}
