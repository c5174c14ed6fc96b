// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package history

import (
	"sort"

	"github.com/watchdeck/watchdeck/internal/models"
)

// AggregateComics groups issue read events by series, deduplicating to one
// entry per series that carries the most-recently-read issue's data. Year
// bucket = the year of the latest read.
func AggregateComics(events []models.WatchEvent) []models.AggregatedItem {
	groups := make(map[string]*models.AggregatedItem)

	for i := range events {
		ev := &events[i]
		key := ev.Identity()

		item, ok := groups[key]
		if !ok {
			item = &models.AggregatedItem{
				ID:        key,
				Title:     showTitle(ev),
				PosterRef: ev.PosterRef,
				FirstSeen: ev.Timestamp,
				LastSeen:  ev.Timestamp,
			}
			if ev.ReleaseYear != nil {
				year := *ev.ReleaseYear
				item.ReleaseYear = &year
			}
			groups[key] = item
		}

		item.Count++
		item.TotalDurationSeconds += ev.DurationSeconds
		if ev.Timestamp.Before(item.FirstSeen) {
			item.FirstSeen = ev.Timestamp
		}
		if !ev.Timestamp.After(item.LastSeen) {
			continue
		}

		// Most-recently-read issue wins the display data
		item.LastSeen = ev.Timestamp
		item.Title = showTitle(ev)
		if ev.PosterRef != "" {
			item.PosterRef = ev.PosterRef
		}
		if ev.ReleaseYear != nil {
			year := *ev.ReleaseYear
			item.ReleaseYear = &year
		}
	}

	items := make([]models.AggregatedItem, 0, len(groups))
	for _, item := range groups {
		item.Year = item.LastSeen.Year()
		items = append(items, *item)
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].LastSeen.Equal(items[j].LastSeen) {
			return items[i].LastSeen.After(items[j].LastSeen)
		}
		return items[i].ID < items[j].ID
	})

	return items
}

// ComicsEligibleForYear returns the series identities eligible for a given
// year's top list. A series qualifies only when at least one of its issues
// was both released and read in that year; this is stricter than movies and
// TV, which only require watched-in-year.
func ComicsEligibleForYear(events []models.WatchEvent, year int) map[string]bool {
	eligible := make(map[string]bool)
	for i := range events {
		ev := &events[i]
		if ev.Timestamp.Year() != year {
			continue
		}
		if ev.ReleaseYear == nil || *ev.ReleaseYear != year {
			continue
		}
		eligible[ev.Identity()] = true
	}
	return eligible
}
