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
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/watchdeck/watchdeck/internal/auth"
	"github.com/watchdeck/watchdeck/internal/cache"
	"github.com/watchdeck/watchdeck/internal/config"
	"github.com/watchdeck/watchdeck/internal/fetch"
	"github.com/watchdeck/watchdeck/internal/komga"
	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/models"
	tmodels "github.com/watchdeck/watchdeck/internal/models/tautulli"
	"github.com/watchdeck/watchdeck/internal/plex"
	"github.com/watchdeck/watchdeck/internal/rankings"
	"github.com/watchdeck/watchdeck/internal/snapshot"
	"github.com/watchdeck/watchdeck/internal/tautulli"
	"github.com/watchdeck/watchdeck/internal/websocket"
)

// historyTimeout bounds bulk history fetches from the upstream watch-history
// service. Exceeding it surfaces as a gateway timeout to the caller.
const historyTimeout = 60 * time.Second

// posterCacheControl is the long-lived cache header for image responses.
const posterCacheControl = "public, max-age=604800, immutable"

// Handler holds dependencies for all HTTP handlers.
type Handler struct {
	config    *config.Config
	tautulli  tautulli.ClientInterface
	plex      *plex.Client
	komga     komga.ClientInterface
	cache     *cache.Cache
	editors   map[models.ContentType]*rankings.Editor
	hub       *websocket.Hub
	jwt       *auth.JWTManager
	passwords *auth.PasswordVerifier
	startTime time.Time

	fetcher      *fetch.Runner
	fetchRunning atomic.Bool
}

// NewHandler creates a handler with the given dependencies. komgaClient,
// jwtManager and passwordVerifier may be nil when the corresponding feature
// is not configured.
func NewHandler(
	cfg *config.Config,
	tautulliClient tautulli.ClientInterface,
	plexClient *plex.Client,
	komgaClient komga.ClientInterface,
	c *cache.Cache,
	editors map[models.ContentType]*rankings.Editor,
	hub *websocket.Hub,
	jwtManager *auth.JWTManager,
	passwordVerifier *auth.PasswordVerifier,
) *Handler {
	return &Handler{
		config:    cfg,
		tautulli:  tautulliClient,
		plex:      plexClient,
		komga:     komgaClient,
		cache:     c,
		editors:   editors,
		hub:       hub,
		jwt:       jwtManager,
		passwords: passwordVerifier,
		startTime: time.Now(),
	}
}

// staticMode reports whether the server serves history from snapshot files
// instead of proxying the live upstream.
func (h *Handler) staticMode() bool {
	return h.config.Server.Mode == "static"
}

// History handles GET /api/history?media_type=movie|episode. Results are
// filtered to the requested media type and memoized in the cache.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	mediaType := r.URL.Query().Get("media_type")
	if mediaType != "movie" && mediaType != "episode" {
		rw.BadRequest("media_type must be 'movie' or 'episode'")
		return
	}

	cacheKey := "history:" + mediaType
	var cached []tmodels.HistoryRecord
	if h.cache.GetJSON(cacheKey, &cached) {
		rw.Success(cached)
		return
	}

	records, err := h.fetchHistory(r.Context(), mediaType)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logging.CtxErr(r.Context(), err).Str("media_type", mediaType).Msg("History fetch timed out")
			rw.GatewayTimeout("upstream history fetch timed out")
			return
		}
		logging.CtxErr(r.Context(), err).Str("media_type", mediaType).Msg("History fetch failed")
		rw.InternalError("failed to fetch history")
		return
	}

	h.cache.SetJSON(cacheKey, records)
	rw.Success(records)
}

// fetchHistory loads history records for a media type from the live API or,
// in static mode, from the snapshot file written by the fetch tool.
func (h *Handler) fetchHistory(ctx context.Context, mediaType string) ([]tmodels.HistoryRecord, error) {
	if h.staticMode() {
		contentType := models.ContentTypeMovies
		if mediaType == "episode" {
			contentType = models.ContentTypeTV
		}
		records, _, err := snapshot.Read[tmodels.HistoryRecord](snapshot.PathFor(h.config.Fetch.SnapshotDir, contentType))
		if err != nil {
			return nil, fmt.Errorf("read history snapshot: %w", err)
		}
		return records, nil
	}

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	return h.tautulli.GetHistory(ctx, mediaType)
}

// Metadata handles GET /api/metadata/{id}, a passthrough of single-item
// metadata from the watch-history service.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ratingKey := chi.URLParam(r, "id")
	if ratingKey == "" {
		rw.BadRequest("metadata id is required")
		return
	}

	meta, err := h.tautulli.GetMetadata(r.Context(), ratingKey)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("rating_key", ratingKey).Msg("Metadata fetch failed")
		rw.InternalError("failed to fetch metadata")
		return
	}

	// Upstream wire shape is preserved so clients parse live and cached
	// responses identically.
	writeRawJSON(w, http.StatusOK, meta)
}

// Poster handles GET /api/poster?thumb=|ratingKey=. The image-proxy command
// on the watch-history service is tried first; on failure the media server
// is queried directly with the configured token. Without a token the
// fallback is refused with a service-unavailable response.
func (h *Handler) Poster(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	thumb := r.URL.Query().Get("thumb")
	if thumb == "" {
		ratingKey := r.URL.Query().Get("ratingKey")
		if ratingKey == "" {
			rw.BadRequest("thumb or ratingKey is required")
			return
		}
		thumb = fmt.Sprintf("/library/metadata/%s/thumb", ratingKey)
	}

	data, contentType, err := h.tautulli.GetImage(r.Context(), thumb)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("thumb", thumb).Msg("Image proxy failed, trying media server directly")

		data, contentType, err = h.plex.GetImage(r.Context(), thumb)
		if err != nil {
			if errors.Is(err, plex.ErrNoToken) {
				rw.ServiceUnavailable("no media server token configured")
				return
			}
			logging.CtxErr(r.Context(), err).Str("thumb", thumb).Msg("Poster fetch failed")
			rw.InternalError("failed to fetch poster")
			return
		}
	}

	writeImage(w, data, contentType)
}

// WebSocket handles GET /api/ws, upgrading the connection and registering
// the client with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(h.hub, w, r)
}

// writeImage writes raw image bytes with long-lived cache headers and
// permissive cross-origin headers.
func writeImage(w http.ResponseWriter, data []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", posterCacheControl)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write image response")
	}
}
