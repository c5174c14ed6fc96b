// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package komga defines wire structs for the Komga REST API responses
// Watchdeck consumes: paged book listings with read progress, and series.
package komga

import (
	"regexp"
	"strconv"
	"time"

	"github.com/watchdeck/watchdeck/internal/models"
)

// Page is Komga's standard paged envelope.
type Page[T any] struct {
	Content       []T  `json:"content"`
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Last          bool `json:"last"`
}

// Book is one comic issue with its read progress.
type Book struct {
	ID           string        `json:"id"`
	SeriesID     string        `json:"seriesId"`
	SeriesTitle  string        `json:"seriesTitle"`
	Name         string        `json:"name"`
	Number       float64       `json:"number"`
	Metadata     BookMetadata  `json:"metadata"`
	ReadProgress *ReadProgress `json:"readProgress"` // Nullable - null when unread
}

type BookMetadata struct {
	Title       string `json:"title"`
	Number      string `json:"number"`
	ReleaseDate string `json:"releaseDate"` // "YYYY-MM-DD", empty when unknown
}

// ReadProgress records when and how far a book was read.
type ReadProgress struct {
	Page      int       `json:"page"`
	Completed bool      `json:"completed"`
	ReadDate  time.Time `json:"readDate"`
}

// Series is one comic series.
type Series struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	BooksCount int            `json:"booksCount"`
	Metadata   SeriesMetadata `json:"metadata"`
}

type SeriesMetadata struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// titleYearPattern extracts a "(YYYY)" release year embedded in issue or
// series titles, a common convention in comic file naming.
var titleYearPattern = regexp.MustCompile(`\((\d{4})\)`)

// YearFromTitle extracts a four-digit year in parentheses from a title.
// Returns 0 when no year is present.
func YearFromTitle(title string) int {
	m := titleYearPattern.FindStringSubmatch(title)
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return year
}

// ReleaseYear resolves the issue's release year: structured release date
// first, then a "(YYYY)" pattern in the issue title, then in the series
// title. Returns 0 when no year can be determined.
func (b *Book) ReleaseYear() int {
	if len(b.Metadata.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(b.Metadata.ReleaseDate[:4]); err == nil {
			return year
		}
	}
	if year := YearFromTitle(b.Metadata.Title); year != 0 {
		return year
	}
	if year := YearFromTitle(b.Name); year != 0 {
		return year
	}
	return YearFromTitle(b.SeriesTitle)
}

// WatchEvent normalizes a read book into the canonical event shape. Books
// without completed read progress produce a zero-timestamp event; callers
// filter those out.
func (b *Book) WatchEvent() models.WatchEvent {
	ev := models.WatchEvent{
		ContentID:  b.ID,
		Title:      b.Metadata.Title,
		GroupID:    b.SeriesID,
		GroupTitle: b.SeriesTitle,
		MediaKind:  models.MediaKindComic,
	}
	if ev.Title == "" {
		ev.Title = b.Name
	}
	if b.ReadProgress != nil {
		ev.Timestamp = b.ReadProgress.ReadDate
	}
	if year := b.ReleaseYear(); year != 0 {
		ev.ReleaseYear = &year
	}
	return ev
}
