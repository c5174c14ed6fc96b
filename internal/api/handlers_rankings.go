// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/models"
)

// maxRankingBodySize bounds ranking POST bodies.
const maxRankingBodySize = 1 << 20 // 1 MB

// RankingsGet handles GET /api/rankings/{contentType}. An empty list is
// returned when no ranking exists, never an error.
func (h *Handler) RankingsGet(w http.ResponseWriter, r *http.Request) {
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

	// The ranking file format is a bare JSON array; the endpoint mirrors it
	// so static and dynamic mode clients parse the same shape.
	writeRawJSON(w, http.StatusOK, editor.Entries())
}

// RankingsPost handles POST /api/rankings/{contentType}. The body must be a
// JSON array of ranking entries; anything else is rejected with the file on
// disk left unchanged.
func (h *Handler) RankingsPost(w http.ResponseWriter, r *http.Request) {
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

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRankingBodySize))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return
	}

	var entries []models.RankingEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		rw.BadRequest("body must be a JSON array of ranking entries")
		return
	}
	if entries == nil {
		entries = []models.RankingEntry{}
	}

	if err := editor.Replace(entries); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			rw.ValidationError("ranking entries failed validation", validationErrs.Error())
			return
		}
		logging.CtxErr(r.Context(), err).Str("content_type", string(contentType)).Msg("Ranking save failed")
		rw.InternalError("failed to save ranking")
		return
	}

	// Ranking-dependent views must refetch after a save.
	h.cache.Clear()

	logging.Ctx(r.Context()).Info().
		Str("content_type", string(contentType)).
		Int("count", len(entries)).
		Msg("Ranking saved")

	rw.Success(map[string]interface{}{
		"content_type": string(contentType),
		"saved":        len(entries),
	})
}
