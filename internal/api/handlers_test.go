// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/watchdeck/watchdeck/internal/cache"
	"github.com/watchdeck/watchdeck/internal/config"
	"github.com/watchdeck/watchdeck/internal/models"
	tmodels "github.com/watchdeck/watchdeck/internal/models/tautulli"
	"github.com/watchdeck/watchdeck/internal/plex"
	"github.com/watchdeck/watchdeck/internal/rankings"
	"github.com/watchdeck/watchdeck/internal/websocket"
)

// mockTautulli implements tautulli.ClientInterface for handler tests.
type mockTautulli struct {
	pingErr error

	records      []tmodels.HistoryRecord
	historyErr   error
	historyCalls int

	meta    *tmodels.Metadata
	metaErr error

	imageData []byte
	imageType string
	imageErr  error
}

func (m *mockTautulli) Ping(_ context.Context) error { return m.pingErr }

func (m *mockTautulli) GetHistoryPage(_ context.Context, _ string, _, _ int) (*tmodels.History, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	var page tmodels.History
	page.Response.Result = "success"
	page.Response.Data.Data = m.records
	return &page, nil
}

func (m *mockTautulli) GetHistory(_ context.Context, _ string) ([]tmodels.HistoryRecord, error) {
	m.historyCalls++
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.records, nil
}

func (m *mockTautulli) GetMetadata(_ context.Context, _ string) (*tmodels.Metadata, error) {
	if m.metaErr != nil {
		return nil, m.metaErr
	}
	return m.meta, nil
}

func (m *mockTautulli) GetImage(_ context.Context, _ string) ([]byte, string, error) {
	if m.imageErr != nil {
		return nil, "", m.imageErr
	}
	return m.imageData, m.imageType, nil
}

// newTestHandler builds a handler with a memory-only cache, file-backed
// rankings in a temp dir, a disabled comics client, and no media-server
// token.
func newTestHandler(t *testing.T, mock *mockTautulli) *Handler {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "dynamic"},
		Rankings: config.RankingsConfig{
			Dir: t.TempDir(),
		},
		Security: config.SecurityConfig{
			SessionTimeout: time.Hour,
		},
	}

	store := rankings.NewStore(cfg.Rankings.Dir)
	editors := make(map[models.ContentType]*rankings.Editor)
	for _, contentType := range models.ContentTypes() {
		entries, err := store.Load(contentType)
		if err != nil {
			t.Fatalf("Failed to load ranking file: %v", err)
		}
		editors[contentType] = rankings.NewEditor(contentType, entries, store)
	}

	return NewHandler(
		cfg,
		mock,
		plex.NewClient(&config.PlexConfig{}),
		nil,
		cache.New(nil, time.Hour),
		editors,
		websocket.NewHub(),
		nil,
		nil,
	)
}

// withURLParam attaches a chi route parameter to a request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var response APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response envelope: %v", err)
	}
	return response
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()

	if w.Code != wantStatus {
		t.Errorf("Expected status %d, got %d", wantStatus, w.Code)
	}
	response := decodeEnvelope(t, w)
	if response.Success {
		t.Error("Expected success=false")
	}
	if response.Error == nil {
		t.Fatal("Expected error block in response")
	}
	if response.Error.Code != wantCode {
		t.Errorf("Expected error code %s, got %s", wantCode, response.Error.Code)
	}
}

func historyTestRecord(ratingKey int64, title string) tmodels.HistoryRecord {
	return tmodels.HistoryRecord{
		RatingKey: ratingKey,
		Title:     title,
		MediaType: "movie",
	}
}
