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

	"github.com/goccy/go-json"

	kmodels "github.com/watchdeck/watchdeck/internal/models/komga"
)

// mockKomga implements komga.ClientInterface for handler tests.
type mockKomga struct {
	pingErr error

	books    []kmodels.Book
	booksErr error

	series    []kmodels.Series
	seriesErr error

	coverData []byte
	coverType string
	coverErr  error

	lastPage int
	lastSize int
}

func (m *mockKomga) Ping(_ context.Context) error { return m.pingErr }

func (m *mockKomga) GetReadBooksPage(_ context.Context, page, size int) (*kmodels.Page[kmodels.Book], error) {
	m.lastPage, m.lastSize = page, size
	if m.booksErr != nil {
		return nil, m.booksErr
	}
	return &kmodels.Page[kmodels.Book]{
		Content:       m.books,
		Size:          size,
		TotalElements: len(m.books),
		TotalPages:    1,
		Last:          true,
	}, nil
}

func (m *mockKomga) GetReadBooks(_ context.Context) ([]kmodels.Book, error) {
	if m.booksErr != nil {
		return nil, m.booksErr
	}
	return m.books, nil
}

func (m *mockKomga) GetSeriesPage(_ context.Context, page, size int) (*kmodels.Page[kmodels.Series], error) {
	m.lastPage, m.lastSize = page, size
	if m.seriesErr != nil {
		return nil, m.seriesErr
	}
	return &kmodels.Page[kmodels.Series]{Content: m.series, Last: true}, nil
}

func (m *mockKomga) GetSeriesCover(_ context.Context, _ string) ([]byte, string, error) {
	if m.coverErr != nil {
		return nil, "", m.coverErr
	}
	return m.coverData, m.coverType, nil
}

func newKomgaTestHandler(t *testing.T, mock *mockKomga) *Handler {
	t.Helper()

	handler := newTestHandler(t, &mockTautulli{})
	handler.komga = mock
	handler.config.Komga.Enabled = true
	return handler
}

func TestKomgaReadProgress_NotConfigured(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockTautulli{})

	req := httptest.NewRequest(http.MethodGet, "/api/komga/read-progress", nil)
	w := httptest.NewRecorder()
	handler.KomgaReadProgress(w, req)

	assertErrorCode(t, w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable)
}

func TestKomgaReadProgress_Passthrough(t *testing.T) {
	t.Parallel()

	mock := &mockKomga{books: []kmodels.Book{
		{ID: "b1", SeriesID: "s1", SeriesTitle: "Saga"},
	}}
	handler := newKomgaTestHandler(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/api/komga/read-progress", nil)
	w := httptest.NewRecorder()
	handler.KomgaReadProgress(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	// Upstream page shape, not the standard envelope
	var page kmodels.Page[kmodels.Book]
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("Failed to decode page: %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].ID != "b1" {
		t.Errorf("Passthrough mismatch: %+v", page)
	}
	if mock.lastSize != komgaDefaultPageSize {
		t.Errorf("Expected default page size %d, got %d", komgaDefaultPageSize, mock.lastSize)
	}
}

func TestKomgaReadProgress_PageParams(t *testing.T) {
	t.Parallel()

	mock := &mockKomga{}
	handler := newKomgaTestHandler(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/api/komga/read-progress?page=2&size=50", nil)
	w := httptest.NewRecorder()
	handler.KomgaReadProgress(w, req)

	if mock.lastPage != 2 || mock.lastSize != 50 {
		t.Errorf("Expected page=2 size=50 forwarded, got page=%d size=%d", mock.lastPage, mock.lastSize)
	}

	// Out-of-bounds values fall back to defaults
	req = httptest.NewRequest(http.MethodGet, "/api/komga/read-progress?page=-1&size=99999", nil)
	handler.KomgaReadProgress(httptest.NewRecorder(), req)

	if mock.lastPage != 0 || mock.lastSize != komgaDefaultPageSize {
		t.Errorf("Expected bounded defaults, got page=%d size=%d", mock.lastPage, mock.lastSize)
	}
}

func TestKomgaSeries_Passthrough(t *testing.T) {
	t.Parallel()

	mock := &mockKomga{series: []kmodels.Series{{ID: "s1", Name: "Saga"}}}
	handler := newKomgaTestHandler(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/api/komga/series", nil)
	w := httptest.NewRecorder()
	handler.KomgaSeries(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var page kmodels.Page[kmodels.Series]
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("Failed to decode page: %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].Name != "Saga" {
		t.Errorf("Passthrough mismatch: %+v", page)
	}
}

func TestKomgaCover(t *testing.T) {
	t.Parallel()

	mock := &mockKomga{coverData: []byte("cover"), coverType: "image/jpeg"}
	handler := newKomgaTestHandler(t, mock)

	req := withURLParam(
		httptest.NewRequest(http.MethodGet, "/api/komga/cover/s1", nil),
		"seriesId", "s1")
	w := httptest.NewRecorder()
	handler.KomgaCover(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", got)
	}
	if got := w.Header().Get("Cache-Control"); got != posterCacheControl {
		t.Errorf("Expected long-lived cache control, got %q", got)
	}
}

func TestKomgaCover_MissingSeriesID(t *testing.T) {
	t.Parallel()

	handler := newKomgaTestHandler(t, &mockKomga{})

	req := withURLParam(
		httptest.NewRequest(http.MethodGet, "/api/komga/cover/", nil),
		"seriesId", "")
	w := httptest.NewRecorder()
	handler.KomgaCover(w, req)

	assertErrorCode(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}
