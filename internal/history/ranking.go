// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package history

import "github.com/watchdeck/watchdeck/internal/models"

// TopN is how many favorites each year's top list shows.
const TopN = 3

// WatchedEligibleForYear returns the identities with at least one event in
// the given year. This is the eligibility rule for movies and TV.
func WatchedEligibleForYear(events []models.WatchEvent, year int) map[string]bool {
	eligible := make(map[string]bool)
	for i := range events {
		if events[i].Timestamp.Year() == year {
			eligible[events[i].Identity()] = true
		}
	}
	return eligible
}

// EligibleForYear applies the content-type-specific eligibility rule.
func EligibleForYear(contentType models.ContentType, events []models.WatchEvent, year int) map[string]bool {
	if contentType == models.ContentTypeComics {
		return ComicsEligibleForYear(events, year)
	}
	return WatchedEligibleForYear(events, year)
}

// TopForYear intersects the user's ranking order with the eligible identity
// set, preserving ranking order, and takes the first n. The result is
// always a filtered prefix of the full ranking, never independently sorted.
func TopForYear(ranking []models.RankingEntry, eligible map[string]bool, n int) []models.RankingEntry {
	top := make([]models.RankingEntry, 0, n)
	for i := range ranking {
		if !eligible[ranking[i].RatingKey] {
			continue
		}
		top = append(top, ranking[i])
		if len(top) == n {
			break
		}
	}
	return top
}
