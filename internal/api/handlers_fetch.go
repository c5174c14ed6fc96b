// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package api

import (
	"context"
	"net/http"

	"github.com/watchdeck/watchdeck/internal/fetch"
	"github.com/watchdeck/watchdeck/internal/logging"
)

// SetFetchRunner wires the fetch runner for the admin refresh endpoint.
func (h *Handler) SetFetchRunner(runner *fetch.Runner) {
	h.fetcher = runner
}

// FetchRefresh handles POST /api/admin/fetch, starting a background fetch
// run. Completion is broadcast per content type over the websocket hub.
// Only one run may be in flight at a time.
func (h *Handler) FetchRefresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.fetcher == nil {
		rw.ServiceUnavailable("fetch runner is not configured")
		return
	}

	if !h.fetchRunning.CompareAndSwap(false, true) {
		rw.Error(http.StatusConflict, ErrCodeConflict, "a fetch run is already in progress")
		return
	}

	logging.Ctx(r.Context()).Info().Msg("Fetch run triggered")

	go func() {
		defer h.fetchRunning.Store(false)

		if err := h.fetcher.Run(context.Background()); err != nil {
			logging.Error().Err(err).Msg("Triggered fetch run finished with errors")
			return
		}
		// Caches hold pre-refresh data after a successful run.
		h.cache.Clear()
	}()

	rw.Success(map[string]interface{}{
		"started": true,
	})
}
