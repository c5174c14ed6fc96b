// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package api

import (
	"context"
	"net/http"
	"time"
)

// healthPingTimeout bounds upstream connectivity checks in readiness and
// health probes.
const healthPingTimeout = 5 * time.Second

// Health handles GET /api/v1/health/, returning overall status including
// upstream connectivity and cache statistics.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	tautulliConnected := h.tautulli != nil && h.tautulli.Ping(ctx) == nil

	komgaConnected := false
	if h.komga != nil && h.config.Komga.Enabled {
		komgaConnected = h.komga.Ping(ctx) == nil
	}

	// Static mode serves snapshots; live upstream reachability only
	// degrades health in dynamic mode.
	status := "healthy"
	if !h.staticMode() && !tautulliConnected {
		status = "degraded"
	}

	stats := h.cache.GetStats()

	rw.Success(map[string]interface{}{
		"status":             status,
		"mode":               h.config.Server.Mode,
		"version":            "1.0.0",
		"tautulli_connected": tautulliConnected,
		"komga_enabled":      h.config.Komga.Enabled,
		"komga_connected":    komgaConnected,
		"uptime":             time.Since(h.startTime).Seconds(),
		"websocket_clients":  h.hub.GetClientCount(),
		"cache": map[string]interface{}{
			"hits":       stats.Hits,
			"misses":     stats.Misses,
			"evictions":  stats.Evictions,
			"total_keys": stats.TotalKeys,
			"hit_rate":   h.cache.HitRate(),
		},
	})
}

// HealthLive handles liveness probe requests. Returns 200 OK if the process
// is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	rw.Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests. In dynamic mode readiness
// requires the watch-history service to be reachable; static mode is always
// ready once the process is up.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ready := true
	tautulliConnected := false

	if !h.staticMode() {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		tautulliConnected = h.tautulli != nil && h.tautulli.Ping(ctx) == nil
		ready = tautulliConnected
	}

	data := map[string]interface{}{
		"ready_to_serve":     ready,
		"tautulli_connected": tautulliConnected,
		"uptime":             time.Since(h.startTime).Seconds(),
	}

	if !ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "service is not ready", data)
		return
	}

	rw.Success(data)
}
