// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package history

import (
	"sort"

	"github.com/watchdeck/watchdeck/internal/models"
)

// ComputeYearStats derives per-year statistics from the two views. Count is
// the number of distinct identities in the deduplicated display list for
// the bucket; duration and event totals are summed over the complete,
// non-deduplicated event list.
func ComputeYearStats(display []models.AggregatedItem, all []models.WatchEvent) []models.YearStats {
	identities := make(map[int]map[string]bool)
	for i := range display {
		year := display[i].Year
		if identities[year] == nil {
			identities[year] = make(map[string]bool)
		}
		identities[year][display[i].ID] = true
	}

	totals := make(map[int]*models.YearStats)
	years := make(map[int]bool)
	for year := range identities {
		years[year] = true
	}

	for i := range all {
		year := all[i].Timestamp.Year()
		years[year] = true
		if totals[year] == nil {
			totals[year] = &models.YearStats{Year: year}
		}
		totals[year].TotalDurationSeconds += all[i].DurationSeconds
		totals[year].TotalEvents++
	}

	stats := make([]models.YearStats, 0, len(years))
	for year := range years {
		s := models.YearStats{Year: year}
		if t := totals[year]; t != nil {
			s.TotalDurationSeconds = t.TotalDurationSeconds
			s.TotalEvents = t.TotalEvents
		}
		s.Count = len(identities[year])
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Year > stats[j].Year })
	return stats
}
