// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/watchdeck/watchdeck/internal/models"
)

func rankingsGet(handler *Handler, contentType string) *httptest.ResponseRecorder {
	req := withURLParam(
		httptest.NewRequest(http.MethodGet, "/api/rankings/"+contentType, nil),
		"contentType", contentType)
	w := httptest.NewRecorder()
	handler.RankingsGet(w, req)
	return w
}

func rankingsPost(handler *Handler, contentType, body string) *httptest.ResponseRecorder {
	req := withURLParam(
		httptest.NewRequest(http.MethodPost, "/api/rankings/"+contentType, strings.NewReader(body)),
		"contentType", contentType)
	w := httptest.NewRecorder()
	handler.RankingsPost(w, req)
	return w
}

func TestRankingsGet_EmptyIsBareArray(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	w := rankingsGet(handler, "movies")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	// The body is a bare JSON array matching the ranking file format
	var entries []models.RankingEntry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("Body is not a bare JSON array: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty ranking, got %d entries", len(entries))
	}
}

func TestRankingsGet_UnknownContentType(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	w := rankingsGet(handler, "music")
	assertErrorCode(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestRankingsPost_SaveAndReadBack(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	body := `[{"rating_key":"10","title":"Alpha"},{"rating_key":"20","title":"Beta"}]`
	w := rankingsPost(handler, "movies", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	response := decodeEnvelope(t, w)
	if !response.Success {
		t.Error("Expected success=true")
	}
	data, ok := response.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object data, got %T", response.Data)
	}
	if saved, _ := data["saved"].(float64); int(saved) != 2 {
		t.Errorf("Expected saved=2, got %v", data["saved"])
	}

	read := rankingsGet(handler, "movies")
	var entries []models.RankingEntry
	if err := json.NewDecoder(read.Body).Decode(&entries); err != nil {
		t.Fatalf("Read back failed: %v", err)
	}
	if len(entries) != 2 || entries[0].RatingKey != "10" || entries[1].RatingKey != "20" {
		t.Errorf("Read back mismatch: %+v", entries)
	}
}

func TestRankingsPost_NonArrayRejectedFileUnchanged(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	// Seed a valid list first
	if w := rankingsPost(handler, "movies", `[{"rating_key":"10","title":"Alpha"}]`); w.Code != http.StatusOK {
		t.Fatalf("Seed save failed: %d", w.Code)
	}

	for _, body := range []string{`"not an array"`, `{"rating_key":"20"}`, `42`, `{broken`} {
		w := rankingsPost(handler, "movies", body)
		assertErrorCode(t, w, http.StatusBadRequest, ErrCodeBadRequest)
	}

	// The stored list is untouched by rejected writes
	read := rankingsGet(handler, "movies")
	var entries []models.RankingEntry
	if err := json.NewDecoder(read.Body).Decode(&entries); err != nil {
		t.Fatalf("Read back failed: %v", err)
	}
	if len(entries) != 1 || entries[0].RatingKey != "10" {
		t.Errorf("Expected seeded list intact, got %+v", entries)
	}
}

func TestRankingsPost_ValidationFailure(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	// Entry missing the required title
	w := rankingsPost(handler, "movies", `[{"rating_key":"10"}]`)
	assertErrorCode(t, w, http.StatusBadRequest, ErrCodeValidationFailed)
}

func TestRankingsPost_EmptyArrayClearsRanking(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	if w := rankingsPost(handler, "tv", `[{"rating_key":"1","title":"One"}]`); w.Code != http.StatusOK {
		t.Fatalf("Seed save failed: %d", w.Code)
	}
	if w := rankingsPost(handler, "tv", `[]`); w.Code != http.StatusOK {
		t.Fatalf("Empty save failed: %d", w.Code)
	}

	read := rankingsGet(handler, "tv")
	var entries []models.RankingEntry
	if err := json.NewDecoder(read.Body).Decode(&entries); err != nil {
		t.Fatalf("Read back failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected cleared ranking, got %d entries", len(entries))
	}
}

func TestRankingsPost_ClearsCache(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	handler.cache.Set("history:movie", []byte(`[]`))
	if w := rankingsPost(handler, "movies", `[{"rating_key":"1","title":"One"}]`); w.Code != http.StatusOK {
		t.Fatalf("Save failed: %d", w.Code)
	}

	if _, ok := handler.cache.Get("history:movie"); ok {
		t.Error("Expected cache cleared after ranking save")
	}
}

func TestRankingsPost_UnknownContentType(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	w := rankingsPost(handler, "podcasts", `[]`)
	assertErrorCode(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}
