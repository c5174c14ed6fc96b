// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/watchdeck/watchdeck/internal/history"
	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/models"
	kmodels "github.com/watchdeck/watchdeck/internal/models/komga"
	"github.com/watchdeck/watchdeck/internal/snapshot"
)

// errComicsUnavailable is returned by loadEvents when comics data is
// requested and no comics service is configured.
var errComicsUnavailable = errors.New("comics service is not configured")

// loadEvents loads the normalized event list for one content type, from the
// live upstreams or, in static mode, from the snapshots written by the fetch
// tool. All aggregation endpoints go through here so the rest of the request
// path only sees WatchEvents.
func (h *Handler) loadEvents(ctx context.Context, contentType models.ContentType) ([]models.WatchEvent, error) {
	if contentType == models.ContentTypeComics {
		return h.loadComicEvents(ctx)
	}

	mediaType := "movie"
	if contentType == models.ContentTypeTV {
		mediaType = "episode"
	}

	records, err := h.fetchHistory(ctx, mediaType)
	if err != nil {
		return nil, err
	}

	events := make([]models.WatchEvent, 0, len(records))
	for i := range records {
		events = append(events, records[i].WatchEvent())
	}
	return events, nil
}

// loadComicEvents loads read-book events from the comics service or, in
// static mode, from the comics snapshot.
func (h *Handler) loadComicEvents(ctx context.Context) ([]models.WatchEvent, error) {
	var books []kmodels.Book

	if h.staticMode() {
		var err error
		books, _, err = snapshot.Read[kmodels.Book](snapshot.PathFor(h.config.Fetch.SnapshotDir, models.ContentTypeComics))
		if err != nil {
			return nil, fmt.Errorf("read comics snapshot: %w", err)
		}
	} else {
		if h.komga == nil || !h.config.Komga.Enabled {
			return nil, errComicsUnavailable
		}
		var err error
		books, err = h.komga.GetReadBooks(ctx)
		if err != nil {
			return nil, err
		}
	}

	events := make([]models.WatchEvent, 0, len(books))
	for i := range books {
		events = append(events, books[i].WatchEvent())
	}
	return events, nil
}

// aggregateForType runs the content-type-specific aggregation over the
// normalized events.
func aggregateForType(contentType models.ContentType, events []models.WatchEvent) []models.AggregatedItem {
	switch contentType {
	case models.ContentTypeTV:
		return history.AggregateTV(events)
	case models.ContentTypeComics:
		return history.AggregateComics(events)
	default:
		return history.AggregateMovies(events).Display
	}
}

// writeEventsError maps a loadEvents failure to the right error response.
func (h *Handler) writeEventsError(rw *ResponseWriter, r *http.Request, contentType models.ContentType, err error) {
	switch {
	case errors.Is(err, errComicsUnavailable):
		rw.ServiceUnavailable("comics service is not configured")
	case errors.Is(err, context.DeadlineExceeded):
		logging.CtxErr(r.Context(), err).Str("content_type", string(contentType)).Msg("History fetch timed out")
		rw.GatewayTimeout("upstream history fetch timed out")
	default:
		logging.CtxErr(r.Context(), err).Str("content_type", string(contentType)).Msg("History fetch failed")
		rw.InternalError("failed to fetch history")
	}
}

// HistoryAggregated handles GET /api/history/aggregated/{contentType},
// returning the deduplicated, grouped display list for the content type.
// Results are memoized in the cache; ranking saves clear it.
func (h *Handler) HistoryAggregated(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	contentType, ok := models.ParseContentType(chi.URLParam(r, "contentType"))
	if !ok {
		rw.BadRequest("unknown content type")
		return
	}

	cacheKey := "aggregated:" + string(contentType)
	var cached []models.AggregatedItem
	if h.cache.GetJSON(cacheKey, &cached) {
		rw.Success(cached)
		return
	}

	events, err := h.loadEvents(r.Context(), contentType)
	if err != nil {
		h.writeEventsError(rw, r, contentType, err)
		return
	}

	items := aggregateForType(contentType, events)
	h.cache.SetJSON(cacheKey, items)
	rw.Success(items)
}

// HistoryStats handles GET /api/stats/{contentType}, returning per-year
// statistics. The year count comes from the deduplicated display view while
// duration/event totals are summed over the complete event list.
func (h *Handler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	contentType, ok := models.ParseContentType(chi.URLParam(r, "contentType"))
	if !ok {
		rw.BadRequest("unknown content type")
		return
	}

	cacheKey := "stats:" + string(contentType)
	var cached []models.YearStats
	if h.cache.GetJSON(cacheKey, &cached) {
		rw.Success(cached)
		return
	}

	events, err := h.loadEvents(r.Context(), contentType)
	if err != nil {
		h.writeEventsError(rw, r, contentType, err)
		return
	}

	stats := history.ComputeYearStats(aggregateForType(contentType, events), events)
	h.cache.SetJSON(cacheKey, stats)
	rw.Success(stats)
}

// TopForYear handles GET /api/top/{contentType}/{year}, returning the user's
// top favorites for the year: the ranking order intersected with the
// identities eligible for that year, first three. Like the rankings
// endpoint, the response is a bare JSON array.
func (h *Handler) TopForYear(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	contentType, ok := models.ParseContentType(chi.URLParam(r, "contentType"))
	if !ok {
		rw.BadRequest("unknown content type")
		return
	}

	editor, ok := h.editors[contentType]
	if !ok {
		rw.BadRequest("unknown content type")
		return
	}

	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1000 || year > 9999 {
		rw.BadRequest("year must be a four-digit number")
		return
	}

	cacheKey := fmt.Sprintf("top:%s:%d", contentType, year)
	var cached []models.RankingEntry
	if h.cache.GetJSON(cacheKey, &cached) {
		writeRawJSON(w, http.StatusOK, cached)
		return
	}

	events, err := h.loadEvents(r.Context(), contentType)
	if err != nil {
		h.writeEventsError(rw, r, contentType, err)
		return
	}

	eligible := history.EligibleForYear(contentType, events, year)
	top := history.TopForYear(editor.Entries(), eligible, history.TopN)

	h.cache.SetJSON(cacheKey, top)
	writeRawJSON(w, http.StatusOK, top)
}
