// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package models defines the canonical internal record shapes shared by the
// fetch tool, the aggregation logic, and the HTTP API. Upstream wire formats
// (Tautulli, Komga) are normalized into these types once at ingestion; no
// code downstream of ingestion branches on field presence.
package models

import "time"

// MediaKind identifies what a single watch event represents.
type MediaKind string

const (
	MediaKindMovie   MediaKind = "movie"
	MediaKindEpisode MediaKind = "episode"
	MediaKindComic   MediaKind = "comic"
)

// ContentType identifies one of the three dashboard datasets.
type ContentType string

const (
	ContentTypeMovies ContentType = "movies"
	ContentTypeTV     ContentType = "tv"
	ContentTypeComics ContentType = "comics"
)

// ParseContentType validates a URL path segment as a content type.
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(s) {
	case ContentTypeMovies, ContentTypeTV, ContentTypeComics:
		return ContentType(s), true
	}
	return "", false
}

// ContentTypes lists all known content types in display order.
func ContentTypes() []ContentType {
	return []ContentType{ContentTypeMovies, ContentTypeTV, ContentTypeComics}
}

// WatchEvent is one playback or read instance, normalized from upstream.
// Immutable once fetched; the set of all events for a content type is the
// source of truth for statistics.
type WatchEvent struct {
	// ContentID is the stable identity of the underlying title. For
	// episodes and comic issues this is the episode/issue identity, not
	// the show/series.
	ContentID string `json:"content_id"`

	Title string `json:"title"`

	// GroupID identifies the owning show or series for episodes and comic
	// issues. Empty for movies.
	GroupID string `json:"group_id,omitempty"`

	// GroupTitle is the owning show/series display title. Empty for movies.
	GroupTitle string `json:"group_title,omitempty"`

	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds int       `json:"duration_seconds"`
	MediaKind       MediaKind `json:"media_kind"`

	// PosterRef is an opaque path usable to retrieve cover art.
	PosterRef string `json:"poster_ref,omitempty"`

	// ReleaseYear is nil when upstream provides no release year.
	ReleaseYear *int `json:"release_year,omitempty"`
}

// Identity returns the grouping identity for this event: the show/series
// for episodes and comics, the title itself for movies.
func (e *WatchEvent) Identity() string {
	if e.GroupID != "" {
		return e.GroupID
	}
	return e.ContentID
}

// AggregatedItem is one display card: a movie, a TV show with episodes
// grouped, or a comic series. Derived from one or more WatchEvents sharing
// an identity.
type AggregatedItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PosterRef string `json:"poster_ref,omitempty"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	// Count is the number of episodes/issues grouped into this item.
	// Always 1 for movies.
	Count int `json:"count"`

	TotalDurationSeconds int `json:"total_duration_seconds"`

	// Year is the tab bucket this item belongs to, derived from the
	// last-seen timestamp.
	Year int `json:"year"`

	// ReleaseYear is nil when no release year is known.
	ReleaseYear *int `json:"release_year,omitempty"`
}

// RankingEntry is one user-curated favorite. Order in the containing list is
// significant: rank = index + 1. Only minimal fields are persisted, never the
// full event record.
type RankingEntry struct {
	RatingKey string  `json:"rating_key" validate:"required"`
	Title     string  `json:"title" validate:"required"`
	Poster    *string `json:"poster,omitempty"`
	Thumb     *string `json:"thumb,omitempty"`
	Year      *int    `json:"year,omitempty"`
}

// YearStats summarizes one year bucket. Count is taken from the deduplicated
// display view; the totals are summed over the complete event list. The two
// come from different underlying sets on purpose.
type YearStats struct {
	Year                 int `json:"year"`
	Count                int `json:"count"`
	TotalDurationSeconds int `json:"total_duration_seconds"`
	TotalEvents          int `json:"total_events"`
}
