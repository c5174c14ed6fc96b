// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package rankings maintains the user-curated ranked favorites: one ordered
// JSON list per content type, the sole persisted write state of the system.
// Rank = index + 1.
package rankings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/watchdeck/watchdeck/internal/models"
)

// Store persists ranking lists as one JSON array file per content type.
//
// Writes are serialized through a mutex and go through a temp file renamed
// into place, so a reader never observes a torn file. Single-writer
// operation is assumed; there is no cross-process lock.
type Store struct {
	dir      string
	mu       sync.Mutex
	validate *validator.Validate
}

// NewStore creates a file-backed ranking store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:      dir,
		validate: validator.New(),
	}
}

// path returns the ranking file path for a content type.
func (s *Store) path(contentType models.ContentType) string {
	return filepath.Join(s.dir, string(contentType)+".json")
}

// Load reads the ranking list for a content type. An absent file reads as
// an empty list, never an error.
func (s *Store) Load(contentType models.ContentType) ([]models.RankingEntry, error) {
	data, err := os.ReadFile(s.path(contentType))
	if os.IsNotExist(err) {
		return []models.RankingEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ranking file: %w", err)
	}

	var entries []models.RankingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse ranking file %s: %w", s.path(contentType), err)
	}
	if entries == nil {
		entries = []models.RankingEntry{}
	}

	return entries, nil
}

// Save overwrites the ranking list for a content type. Entries are
// validated first; an invalid list leaves the existing file unchanged.
func (s *Store) Save(contentType models.ContentType, entries []models.RankingEntry) error {
	if err := s.Validate(entries); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ranking list: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create rankings dir: %w", err)
	}

	path := s.path(contentType)
	tmp, err := os.CreateTemp(s.dir, string(contentType)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ranking file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write ranking file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp ranking file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace ranking file: %w", err)
	}

	return nil
}

// Validate checks every entry carries the required minimal fields.
func (s *Store) Validate(entries []models.RankingEntry) error {
	for i := range entries {
		if err := s.validate.Struct(&entries[i]); err != nil {
			return fmt.Errorf("ranking entry %d invalid: %w", i, err)
		}
	}
	return nil
}
