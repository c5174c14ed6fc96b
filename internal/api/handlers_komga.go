// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/models"
	kmodels "github.com/watchdeck/watchdeck/internal/models/komga"
	"github.com/watchdeck/watchdeck/internal/snapshot"
)

const (
	komgaDefaultPageSize = 500
	komgaMaxPageSize     = 1000
)

// komgaAvailable writes a service-unavailable response and returns false
// when the comics service is not configured.
func (h *Handler) komgaAvailable(rw *ResponseWriter) bool {
	if h.komga == nil || !h.config.Komga.Enabled {
		rw.ServiceUnavailable("comics service is not configured")
		return false
	}
	return true
}

// komgaPageParams parses page/size query parameters with bounded defaults.
func komgaPageParams(r *http.Request) (page, size int) {
	page = 0
	size = komgaDefaultPageSize

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= komgaMaxPageSize {
			size = n
		}
	}
	return page, size
}

// KomgaReadProgress handles GET /api/komga/read-progress, a passthrough of
// the paginated read-books listing. In static mode the comics snapshot is
// served in the same page shape.
func (h *Handler) KomgaReadProgress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.staticMode() {
		books, _, err := snapshot.Read[kmodels.Book](snapshot.PathFor(h.config.Fetch.SnapshotDir, models.ContentTypeComics))
		if err != nil {
			logging.CtxErr(r.Context(), err).Msg("Comics snapshot read failed")
			rw.InternalError("failed to read comics snapshot")
			return
		}

		writeRawJSON(w, http.StatusOK, &kmodels.Page[kmodels.Book]{
			Content:       books,
			Number:        0,
			Size:          len(books),
			TotalElements: len(books),
			TotalPages:    1,
			Last:          true,
		})
		return
	}

	if !h.komgaAvailable(rw) {
		return
	}

	page, size := komgaPageParams(r)
	result, err := h.komga.GetReadBooksPage(r.Context(), page, size)
	if err != nil {
		logging.CtxErr(r.Context(), err).Int("page", page).Msg("Komga read-progress fetch failed")
		rw.InternalError("failed to fetch read progress")
		return
	}

	writeRawJSON(w, http.StatusOK, result)
}

// KomgaSeries handles GET /api/komga/series, a passthrough of the paginated
// series listing.
func (h *Handler) KomgaSeries(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.komgaAvailable(rw) {
		return
	}

	page, size := komgaPageParams(r)
	result, err := h.komga.GetSeriesPage(r.Context(), page, size)
	if err != nil {
		logging.CtxErr(r.Context(), err).Int("page", page).Msg("Komga series fetch failed")
		rw.InternalError("failed to fetch series")
		return
	}

	writeRawJSON(w, http.StatusOK, result)
}

// KomgaCover handles GET /api/komga/cover/{seriesId}, returning the series
// thumbnail bytes with long-lived cache headers.
func (h *Handler) KomgaCover(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.komgaAvailable(rw) {
		return
	}

	seriesID := chi.URLParam(r, "seriesId")
	if seriesID == "" {
		rw.BadRequest("seriesId is required")
		return
	}

	data, contentType, err := h.komga.GetSeriesCover(r.Context(), seriesID)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("series_id", seriesID).Msg("Komga cover fetch failed")
		rw.InternalError("failed to fetch series cover")
		return
	}

	writeImage(w, data, contentType)
}
