// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package tautulli defines wire structs for the Tautulli v2 API responses
// Watchdeck consumes. Only the fields this system reads are modeled; the
// upstream records carry far more.
package tautulli

import (
	"strconv"

	"github.com/watchdeck/watchdeck/internal/models"
)

// History represents the API response from Tautulli's get_history endpoint.
type History struct {
	Response HistoryResponse `json:"response"`
}

type HistoryResponse struct {
	Result  string      `json:"result"`
	Message *string     `json:"message,omitempty"`
	Data    HistoryData `json:"data"`
}

type HistoryData struct {
	RecordsFiltered int             `json:"recordsFiltered"`
	RecordsTotal    int             `json:"recordsTotal"`
	Data            []HistoryRecord `json:"data"`
}

// HistoryRecord is a single playback history record. Pointer fields are
// nullable in the Tautulli API response.
type HistoryRecord struct {
	Date    models.FlexibleTime `json:"date"`
	Started int64               `json:"started"`
	Stopped int64               `json:"stopped"`

	MediaType string `json:"media_type"`

	RatingKey            int64 `json:"rating_key"`
	ParentRatingKey      int64 `json:"parent_rating_key"`
	GrandparentRatingKey int64 `json:"grandparent_rating_key"`

	Title            string  `json:"title"`
	ParentTitle      *string `json:"parent_title"`      // Nullable - null for movies
	GrandparentTitle *string `json:"grandparent_title"` // Nullable - null for movies
	FullTitle        string  `json:"full_title"`

	Duration *int `json:"duration"` // In seconds, nullable for live sessions
	Year     *int `json:"year"`     // Nullable - null when unknown

	Thumb string `json:"thumb"`
	User  string `json:"user"`
}

// WatchEvent normalizes a history record into the canonical event shape.
// Episodes carry the show-level identity in GroupID so aggregation can group
// at the show level; movies leave it empty.
func (r *HistoryRecord) WatchEvent() models.WatchEvent {
	ev := models.WatchEvent{
		ContentID: strconv.FormatInt(r.RatingKey, 10),
		Title:     r.Title,
		Timestamp: r.Date.Time,
		MediaKind: models.MediaKindMovie,
		PosterRef: r.Thumb,
	}

	if r.Duration != nil {
		ev.DurationSeconds = *r.Duration
	}
	if r.Year != nil {
		year := *r.Year
		ev.ReleaseYear = &year
	}

	if r.MediaType == "episode" {
		ev.MediaKind = models.MediaKindEpisode
		if r.GrandparentRatingKey != 0 {
			ev.GroupID = strconv.FormatInt(r.GrandparentRatingKey, 10)
		} else if r.ParentRatingKey != 0 {
			ev.GroupID = strconv.FormatInt(r.ParentRatingKey, 10)
		}
		if r.GrandparentTitle != nil && *r.GrandparentTitle != "" {
			ev.GroupTitle = *r.GrandparentTitle
		} else if r.ParentTitle != nil {
			ev.GroupTitle = *r.ParentTitle
		}
	}

	return ev
}
