// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package history implements the aggregation logic that turns raw watch
// events into deduplicated, year-bucketed display lists and aggregate
// statistics. Everything here is a pure function over slices; no I/O.
//
// Two parallel views of the same data exist on purpose: a deduplicated
// view for display and the complete event list for aggregate math. Year
// counts come from the first, duration/issue totals from the second.
package history

import (
	"sort"

	"github.com/watchdeck/watchdeck/internal/models"
)

// MovieView holds the two parallel views of movie history.
type MovieView struct {
	// Display is deduplicated for presentation: immediately consecutive
	// rewatches of the same title collapse into one card.
	Display []models.AggregatedItem

	// All is the complete, non-deduplicated event list, retained for
	// statistics.
	All []models.WatchEvent
}

// sortEventsDesc returns a copy of events sorted descending by timestamp.
// Ties are broken by identity so re-running aggregation over the same
// inputs always yields the same ordering.
func sortEventsDesc(events []models.WatchEvent) []models.WatchEvent {
	sorted := make([]models.WatchEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		}
		return sorted[i].Identity() < sorted[j].Identity()
	})
	return sorted
}

// DedupConsecutive collapses immediately consecutive events sharing an
// identity into one, keeping the first (most recent after a descending
// sort). The operation is idempotent: applying it twice yields the same
// list.
func DedupConsecutive(events []models.WatchEvent) []models.WatchEvent {
	if len(events) == 0 {
		return nil
	}

	deduped := make([]models.WatchEvent, 0, len(events))
	for i := range events {
		if i > 0 && events[i].Identity() == events[i-1].Identity() {
			continue
		}
		deduped = append(deduped, events[i])
	}
	return deduped
}

// AggregateMovies builds the movie display list and retains the complete
// event list for statistics. Each display item carries its own event's
// year as its bucket.
func AggregateMovies(events []models.WatchEvent) MovieView {
	sorted := sortEventsDesc(events)
	deduped := DedupConsecutive(sorted)

	display := make([]models.AggregatedItem, 0, len(deduped))
	for i := range deduped {
		display = append(display, movieItem(&deduped[i]))
	}

	return MovieView{Display: display, All: sorted}
}

// movieItem maps one watch event to a display card.
func movieItem(ev *models.WatchEvent) models.AggregatedItem {
	item := models.AggregatedItem{
		ID:                   ev.Identity(),
		Title:                ev.Title,
		PosterRef:            ev.PosterRef,
		FirstSeen:            ev.Timestamp,
		LastSeen:             ev.Timestamp,
		Count:                1,
		TotalDurationSeconds: ev.DurationSeconds,
		Year:                 ev.Timestamp.Year(),
	}
	if ev.ReleaseYear != nil {
		year := *ev.ReleaseYear
		item.ReleaseYear = &year
	}
	return item
}
