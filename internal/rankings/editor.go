// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package rankings

import (
	"fmt"
	"sync"

	"github.com/watchdeck/watchdeck/internal/metrics"
	"github.com/watchdeck/watchdeck/internal/models"
)

// Saver persists a ranking list. Implemented by Store; tests and static
// mode can supply their own.
type Saver interface {
	Save(contentType models.ContentType, entries []models.RankingEntry) error
}

// Notifier observes ranking invalidations so read-only views refresh and
// caches clear after every successful save.
type Notifier interface {
	RankingsInvalidated(contentType models.ContentType)
}

// Editor maintains one ordered favorites list in memory, persisting through
// its Saver on every mutation and notifying subscribers after each
// successful save.
//
// Membership is keyed by identity (the list acts as a set for adds) but
// order carries the ranking.
type Editor struct {
	contentType models.ContentType

	mu        sync.Mutex
	entries   []models.RankingEntry
	saver     Saver
	notifiers []Notifier
}

// NewEditor creates an editor over an initial list.
func NewEditor(contentType models.ContentType, initial []models.RankingEntry, saver Saver) *Editor {
	entries := make([]models.RankingEntry, len(initial))
	copy(entries, initial)
	return &Editor{
		contentType: contentType,
		entries:     entries,
		saver:       saver,
	}
}

// Subscribe registers a notifier for invalidation events.
func (e *Editor) Subscribe(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifiers = append(e.notifiers, n)
}

// Entries returns a copy of the current list.
func (e *Editor) Entries() []models.RankingEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := make([]models.RankingEntry, len(e.entries))
	copy(entries, e.entries)
	return entries
}

// Add appends an entry to the end of the ranking. Adding an identity
// already present is a no-op: the list is not saved and false is returned.
func (e *Editor) Add(entry models.RankingEntry) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.entries {
		if e.entries[i].RatingKey == entry.RatingKey {
			return false, nil
		}
	}

	updated := append(append([]models.RankingEntry{}, e.entries...), entry)
	if err := e.persist(updated); err != nil {
		return false, err
	}

	metrics.RankingMutations.WithLabelValues(string(e.contentType), "add").Inc()
	return true, nil
}

// Remove deletes the entry with the given identity. Removing an absent
// identity is a no-op returning false.
func (e *Editor) Remove(ratingKey string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i := range e.entries {
		if e.entries[i].RatingKey == ratingKey {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}

	updated := make([]models.RankingEntry, 0, len(e.entries)-1)
	updated = append(updated, e.entries[:idx]...)
	updated = append(updated, e.entries[idx+1:]...)

	if err := e.persist(updated); err != nil {
		return false, err
	}

	metrics.RankingMutations.WithLabelValues(string(e.contentType), "remove").Inc()
	return true, nil
}

// Move reorders the entry at src to land before the slot dst referred to
// at call time (see MoveEntry).
func (e *Editor) Move(src, dst int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	updated, err := MoveEntry(e.entries, src, dst)
	if err != nil {
		return err
	}

	if err := e.persist(updated); err != nil {
		return err
	}

	metrics.RankingMutations.WithLabelValues(string(e.contentType), "move").Inc()
	return nil
}

// Replace swaps in a whole new list, used by the HTTP write endpoint.
func (e *Editor) Replace(entries []models.RankingEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	updated := make([]models.RankingEntry, len(entries))
	copy(updated, entries)

	if err := e.persist(updated); err != nil {
		return err
	}

	metrics.RankingMutations.WithLabelValues(string(e.contentType), "replace").Inc()
	return nil
}

// persist saves the updated list and, on success, commits it to memory and
// notifies subscribers. Must be called with e.mu held.
func (e *Editor) persist(updated []models.RankingEntry) error {
	if e.saver != nil {
		if err := e.saver.Save(e.contentType, updated); err != nil {
			return fmt.Errorf("save ranking list: %w", err)
		}
	}
	e.entries = updated

	for _, n := range e.notifiers {
		n.RankingsInvalidated(e.contentType)
	}
	return nil
}

// MoveEntry returns a new list with the entry at src moved to dst using
// splice semantics: the entry is removed, then inserted at dst adjusted by
// -1 when dst > src, preserving intuitive "drop before this slot" behavior.
// Pure function, independent of any UI event system.
func MoveEntry(list []models.RankingEntry, src, dst int) ([]models.RankingEntry, error) {
	if src < 0 || src >= len(list) {
		return nil, fmt.Errorf("source index %d out of range [0,%d)", src, len(list))
	}
	if dst < 0 || dst > len(list) {
		return nil, fmt.Errorf("destination index %d out of range [0,%d]", dst, len(list))
	}

	if dst > src {
		dst--
	}

	moved := list[src]
	out := make([]models.RankingEntry, 0, len(list))
	out = append(out, list[:src]...)
	out = append(out, list[src+1:]...)
	out = append(out[:dst], append([]models.RankingEntry{moved}, out[dst:]...)...)
	return out, nil
}
