// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package history

import (
	"sort"
	"strings"

	"github.com/watchdeck/watchdeck/internal/models"
)

// AggregateTV groups episode events by show identity, accumulating per-show
// totals. Shows whose normalized titles collide are merged: the identity
// with more accumulated episodes wins, ties going to the more recent
// last-seen timestamp. Year bucket = the year of the show's latest event.
func AggregateTV(events []models.WatchEvent) []models.AggregatedItem {
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
		if ev.Timestamp.After(item.LastSeen) {
			item.LastSeen = ev.Timestamp
			item.PosterRef = ev.PosterRef
			item.Title = showTitle(ev)
		}
	}

	merged := mergeByNormalizedTitle(groups)

	items := make([]models.AggregatedItem, 0, len(merged))
	for _, item := range merged {
		item.Year = item.LastSeen.Year()
		items = append(items, *item)
	}

	// Most recently watched first; identity tie-break keeps output stable
	sort.Slice(items, func(i, j int) bool {
		if !items[i].LastSeen.Equal(items[j].LastSeen) {
			return items[i].LastSeen.After(items[j].LastSeen)
		}
		return items[i].ID < items[j].ID
	})

	return items
}

// showTitle prefers the show-level title over the episode's own.
func showTitle(ev *models.WatchEvent) string {
	if ev.GroupTitle != "" {
		return ev.GroupTitle
	}
	return ev.Title
}

// mergeByNormalizedTitle merges distinct show identities whose display
// titles normalize to the same string. The winner is the identity with more
// accumulated episodes; on a tie, the one with the more recent last-seen
// timestamp. The loser's episodes fold into the winner.
func mergeByNormalizedTitle(groups map[string]*models.AggregatedItem) []*models.AggregatedItem {
	byTitle := make(map[string]*models.AggregatedItem)

	// Deterministic merge order regardless of map iteration
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		item := groups[key]
		norm := normalizeTitle(item.Title)

		existing, ok := byTitle[norm]
		if !ok {
			byTitle[norm] = item
			continue
		}

		winner, loser := existing, item
		if item.Count > existing.Count ||
			(item.Count == existing.Count && item.LastSeen.After(existing.LastSeen)) {
			winner, loser = item, existing
		}

		winner.Count += loser.Count
		winner.TotalDurationSeconds += loser.TotalDurationSeconds
		if loser.FirstSeen.Before(winner.FirstSeen) {
			winner.FirstSeen = loser.FirstSeen
		}
		if loser.LastSeen.After(winner.LastSeen) {
			winner.LastSeen = loser.LastSeen
		}
		byTitle[norm] = winner
	}

	merged := make([]*models.AggregatedItem, 0, len(byTitle))
	for _, item := range byTitle {
		merged = append(merged, item)
	}
	return merged
}

// normalizeTitle lowercases and collapses whitespace for merge comparison.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
