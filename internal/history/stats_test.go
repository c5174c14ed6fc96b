// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package history

import (
	"testing"
	"time"

	"github.com/watchdeck/watchdeck/internal/models"
)

func TestComputeYearStats_CountFromDisplayTotalsFromAll(t *testing.T) {
	t.Parallel()

	// A rewatched movie: one display card, two events. The year count must
	// come from the deduplicated view and the duration from the full list.
	base := time.Date(2025, 8, 1, 20, 0, 0, 0, time.UTC)
	all := []models.WatchEvent{
		movieEvent("a", "Alpha", base.Add(time.Hour), 7200),
		movieEvent("a", "Alpha", base, 7200),
		movieEvent("b", "Beta", base.Add(-time.Hour), 5400),
	}
	display := []models.AggregatedItem{
		{ID: "a", Year: 2025},
		{ID: "b", Year: 2025},
	}

	stats := ComputeYearStats(display, all)

	if len(stats) != 1 {
		t.Fatalf("Expected 1 year bucket, got %d", len(stats))
	}
	s := stats[0]
	if s.Year != 2025 {
		t.Errorf("Expected year 2025, got %d", s.Year)
	}
	if s.Count != 2 {
		t.Errorf("Expected count 2 (distinct titles), got %d", s.Count)
	}
	if s.TotalEvents != 3 {
		t.Errorf("Expected 3 total events, got %d", s.TotalEvents)
	}
	if s.TotalDurationSeconds != 7200+7200+5400 {
		t.Errorf("Expected full duration sum, got %d", s.TotalDurationSeconds)
	}
}

func TestComputeYearStats_MultipleYearsSortedDescending(t *testing.T) {
	t.Parallel()

	all := []models.WatchEvent{
		movieEvent("a", "Alpha", time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC), 6000),
		movieEvent("b", "Beta", time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC), 7000),
	}
	display := []models.AggregatedItem{
		{ID: "a", Year: 2024},
		{ID: "b", Year: 2025},
	}

	stats := ComputeYearStats(display, all)

	if len(stats) != 2 {
		t.Fatalf("Expected 2 year buckets, got %d", len(stats))
	}
	if stats[0].Year != 2025 || stats[1].Year != 2024 {
		t.Errorf("Expected descending years [2025, 2024], got [%d, %d]",
			stats[0].Year, stats[1].Year)
	}
	if stats[0].TotalDurationSeconds != 7000 {
		t.Errorf("Expected 7000s for 2025, got %d", stats[0].TotalDurationSeconds)
	}
}

func TestComputeYearStats_DisplayOnlyYearStillAppears(t *testing.T) {
	t.Parallel()

	// A display bucket with no matching events keeps a zero-total entry
	display := []models.AggregatedItem{{ID: "a", Year: 2023}}

	stats := ComputeYearStats(display, nil)

	if len(stats) != 1 {
		t.Fatalf("Expected 1 year bucket, got %d", len(stats))
	}
	if stats[0].Count != 1 || stats[0].TotalEvents != 0 {
		t.Errorf("Expected count 1 with zero totals, got %+v", stats[0])
	}
}

func TestComputeYearStats_Empty(t *testing.T) {
	t.Parallel()

	if stats := ComputeYearStats(nil, nil); len(stats) != 0 {
		t.Errorf("Expected no stats for empty input, got %d", len(stats))
	}
}
