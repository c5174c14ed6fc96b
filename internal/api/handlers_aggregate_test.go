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

	"github.com/watchdeck/watchdeck/internal/models"
	kmodels "github.com/watchdeck/watchdeck/internal/models/komga"
	tmodels "github.com/watchdeck/watchdeck/internal/models/tautulli"
)

func aggMovieRecord(ratingKey int64, title string, watched time.Time, durationSeconds int) tmodels.HistoryRecord {
	return tmodels.HistoryRecord{
		RatingKey: ratingKey,
		Title:     title,
		MediaType: "movie",
		Date:      models.FlexibleTime{Time: watched},
		Duration:  &durationSeconds,
	}
}

func aggEpisodeRecord(ratingKey, showKey int64, showTitle string, watched time.Time) tmodels.HistoryRecord {
	return tmodels.HistoryRecord{
		RatingKey:            ratingKey,
		GrandparentRatingKey: showKey,
		GrandparentTitle:     &showTitle,
		Title:                "Episode",
		MediaType:            "episode",
		Date:                 models.FlexibleTime{Time: watched},
	}
}

// aggRequest builds a GET request carrying multiple chi route parameters.
func aggRequest(target string, params map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// decodeDataAs re-marshals the envelope's data field into a typed value.
func decodeDataAs[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	response := decodeEnvelope(t, w)
	raw, err := json.Marshal(response.Data)
	if err != nil {
		t.Fatalf("Failed to re-marshal data: %v", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	return out
}

func TestHistoryAggregated_UnknownContentType(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	w := httptest.NewRecorder()
	handler.HistoryAggregated(w, aggRequest("/api/history/aggregated/music", map[string]string{"contentType": "music"}))

	assertErrorCode(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestHistoryAggregated_MoviesDeduped(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	mock := &mockTautulli{records: []tmodels.HistoryRecord{
		aggMovieRecord(1, "Alpha", base.Add(2*time.Hour), 600),
		aggMovieRecord(1, "Alpha", base.Add(time.Hour), 600),
		aggMovieRecord(2, "Beta", base, 500),
	}}
	handler := newTestHandler(t, mock)

	w := httptest.NewRecorder()
	handler.HistoryAggregated(w, aggRequest("/api/history/aggregated/movies", map[string]string{"contentType": "movies"}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	items := decodeDataAs[[]models.AggregatedItem](t, w)
	if len(items) != 2 {
		t.Fatalf("Expected consecutive rewatch collapsed to 2 items, got %d", len(items))
	}
	if items[0].Title != "Alpha" || items[1].Title != "Beta" {
		t.Errorf("Expected [Alpha, Beta] most recent first, got [%s, %s]", items[0].Title, items[1].Title)
	}
}

func TestHistoryAggregated_SecondRequestServedFromCache(t *testing.T) {
	t.Parallel()

	mock := &mockTautulli{records: []tmodels.HistoryRecord{
		aggMovieRecord(1, "Alpha", time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC), 600),
	}}
	handler := newTestHandler(t, mock)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.HistoryAggregated(w, aggRequest("/api/history/aggregated/movies", map[string]string{"contentType": "movies"}))
		if w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, w.Code)
		}
	}

	if mock.historyCalls != 1 {
		t.Errorf("Expected 1 upstream call with second request cached, got %d", mock.historyCalls)
	}
}

func TestHistoryAggregated_TVGroupsByShow(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)
	mock := &mockTautulli{records: []tmodels.HistoryRecord{
		aggEpisodeRecord(101, 10, "Severance", base.Add(2*time.Hour)),
		aggEpisodeRecord(102, 10, "Severance", base.Add(time.Hour)),
		aggEpisodeRecord(201, 20, "Andor", base),
	}}
	handler := newTestHandler(t, mock)

	w := httptest.NewRecorder()
	handler.HistoryAggregated(w, aggRequest("/api/history/aggregated/tv", map[string]string{"contentType": "tv"}))

	items := decodeDataAs[[]models.AggregatedItem](t, w)
	if len(items) != 2 {
		t.Fatalf("Expected 2 shows, got %d", len(items))
	}
	byID := make(map[string]models.AggregatedItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	if byID["10"].Count != 2 {
		t.Errorf("Expected 2 episodes grouped for show 10, got %d", byID["10"].Count)
	}
	if byID["10"].Title != "Severance" {
		t.Errorf("Expected show title Severance, got %q", byID["10"].Title)
	}
}

func TestHistoryAggregated_ComicsNotConfigured(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	w := httptest.NewRecorder()
	handler.HistoryAggregated(w, aggRequest("/api/history/aggregated/comics", map[string]string{"contentType": "comics"}))

	assertErrorCode(t, w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable)
}

func TestHistoryAggregated_ComicsGroupsBySeries(t *testing.T) {
	t.Parallel()

	read := time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	mock := &mockKomga{books: []kmodels.Book{
		{
			ID: "b1", SeriesID: "s1", SeriesTitle: "Saga",
			Metadata:     kmodels.BookMetadata{Title: "Saga #1", ReleaseDate: "2025-01-01"},
			ReadProgress: &kmodels.ReadProgress{Completed: true, ReadDate: read},
		},
		{
			ID: "b2", SeriesID: "s1", SeriesTitle: "Saga",
			Metadata:     kmodels.BookMetadata{Title: "Saga #2", ReleaseDate: "2025-02-01"},
			ReadProgress: &kmodels.ReadProgress{Completed: true, ReadDate: read.Add(24 * time.Hour)},
		},
	}}
	handler := newKomgaTestHandler(t, mock)

	w := httptest.NewRecorder()
	handler.HistoryAggregated(w, aggRequest("/api/history/aggregated/comics", map[string]string{"contentType": "comics"}))

	items := decodeDataAs[[]models.AggregatedItem](t, w)
	if len(items) != 1 {
		t.Fatalf("Expected 1 series entry, got %d", len(items))
	}
	if items[0].ID != "s1" || items[0].Count != 2 {
		t.Errorf("Expected series s1 with 2 issues, got %s with %d", items[0].ID, items[0].Count)
	}
}

func TestHistoryStats_CountsAndTotals(t *testing.T) {
	t.Parallel()

	mock := &mockTautulli{records: []tmodels.HistoryRecord{
		aggMovieRecord(1, "Alpha", time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC), 600),
		aggMovieRecord(1, "Alpha", time.Date(2025, 4, 1, 20, 0, 0, 0, time.UTC), 500),
		aggMovieRecord(2, "Beta", time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC), 400),
	}}
	handler := newTestHandler(t, mock)

	w := httptest.NewRecorder()
	handler.HistoryStats(w, aggRequest("/api/stats/movies", map[string]string{"contentType": "movies"}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	stats := decodeDataAs[[]models.YearStats](t, w)
	if len(stats) != 2 {
		t.Fatalf("Expected 2 year buckets, got %d", len(stats))
	}
	if stats[0].Year != 2025 || stats[1].Year != 2024 {
		t.Fatalf("Expected years sorted descending, got %d then %d", stats[0].Year, stats[1].Year)
	}
	// The rewatch collapses for the count but both events feed the totals
	if stats[0].Count != 1 {
		t.Errorf("Expected 2025 count 1, got %d", stats[0].Count)
	}
	if stats[0].TotalEvents != 2 {
		t.Errorf("Expected 2025 total events 2, got %d", stats[0].TotalEvents)
	}
	if stats[0].TotalDurationSeconds != 1100 {
		t.Errorf("Expected 2025 duration 1100, got %d", stats[0].TotalDurationSeconds)
	}
}

func TestHistoryStats_UnknownContentType(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	w := httptest.NewRecorder()
	handler.HistoryStats(w, aggRequest("/api/stats/books", map[string]string{"contentType": "books"}))

	assertErrorCode(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}

func topRequest(handler *Handler, contentType, year string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler.TopForYear(w, aggRequest(
		"/api/top/"+contentType+"/"+year,
		map[string]string{"contentType": contentType, "year": year}))
	return w
}

func TestTopForYear_FiltersRankingToEligible(t *testing.T) {
	t.Parallel()

	mock := &mockTautulli{records: []tmodels.HistoryRecord{
		aggMovieRecord(1, "Alpha", time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC), 600),
		aggMovieRecord(3, "Gamma", time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC), 600),
	}}
	handler := newTestHandler(t, mock)

	ranking := []models.RankingEntry{
		{RatingKey: "2", Title: "Beta"},
		{RatingKey: "1", Title: "Alpha"},
		{RatingKey: "3", Title: "Gamma"},
	}
	if err := handler.editors[models.ContentTypeMovies].Replace(ranking); err != nil {
		t.Fatalf("Failed to seed ranking: %v", err)
	}

	w := topRequest(handler, "movies", "2025")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var top []models.RankingEntry
	if err := json.NewDecoder(w.Body).Decode(&top); err != nil {
		t.Fatalf("Failed to decode top list: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 eligible favorites, got %d", len(top))
	}
	// Ranking order is preserved, the unwatched entry is skipped
	if top[0].RatingKey != "1" || top[1].RatingKey != "3" {
		t.Errorf("Expected [1, 3] in ranking order, got [%s, %s]", top[0].RatingKey, top[1].RatingKey)
	}
}

func TestTopForYear_BadYear(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	for _, year := range []string{"", "20x5", "99"} {
		w := topRequest(handler, "movies", year)
		assertErrorCode(t, w, http.StatusBadRequest, ErrCodeBadRequest)
	}
}

func TestTopForYear_RankingSaveInvalidatesCache(t *testing.T) {
	t.Parallel()

	mock := &mockTautulli{records: []tmodels.HistoryRecord{
		aggMovieRecord(1, "Alpha", time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC), 600),
		aggMovieRecord(2, "Beta", time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC), 600),
	}}
	handler := newTestHandler(t, mock)

	if err := handler.editors[models.ContentTypeMovies].Replace([]models.RankingEntry{
		{RatingKey: "1", Title: "Alpha"},
	}); err != nil {
		t.Fatalf("Failed to seed ranking: %v", err)
	}

	w := topRequest(handler, "movies", "2025")
	var top []models.RankingEntry
	if err := json.NewDecoder(w.Body).Decode(&top); err != nil {
		t.Fatalf("Failed to decode top list: %v", err)
	}
	if len(top) != 1 || top[0].RatingKey != "1" {
		t.Fatalf("Expected initial top [1], got %+v", top)
	}

	// Saving a new ranking through the API clears the memoized top list
	w = rankingsPost(handler, "movies", `[{"rating_key":"2","title":"Beta"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("Ranking save failed: %d %s", w.Code, w.Body.String())
	}

	w = topRequest(handler, "movies", "2025")
	top = nil
	if err := json.NewDecoder(w.Body).Decode(&top); err != nil {
		t.Fatalf("Failed to decode top list: %v", err)
	}
	if len(top) != 1 || top[0].RatingKey != "2" {
		t.Errorf("Expected recomputed top [2] after ranking save, got %+v", top)
	}
}
