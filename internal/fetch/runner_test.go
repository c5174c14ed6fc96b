// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/watchdeck/watchdeck/internal/config"
	"github.com/watchdeck/watchdeck/internal/models"
	kmodels "github.com/watchdeck/watchdeck/internal/models/komga"
	tmodels "github.com/watchdeck/watchdeck/internal/models/tautulli"
	"github.com/watchdeck/watchdeck/internal/snapshot"
)

// fakeTautulli implements tautulli.ClientInterface for fetch tests.
type fakeTautulli struct {
	mu sync.Mutex

	records    map[string][]tmodels.HistoryRecord
	historyErr error

	imageCalls []string
	imageErr   error
}

func (f *fakeTautulli) Ping(_ context.Context) error { return nil }

func (f *fakeTautulli) GetHistoryPage(_ context.Context, mediaType string, _, _ int) (*tmodels.History, error) {
	var page tmodels.History
	page.Response.Result = "success"
	page.Response.Data.Data = f.records[mediaType]
	return &page, nil
}

func (f *fakeTautulli) GetHistory(_ context.Context, mediaType string) ([]tmodels.HistoryRecord, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.records[mediaType], nil
}

func (f *fakeTautulli) GetMetadata(_ context.Context, _ string) (*tmodels.Metadata, error) {
	return &tmodels.Metadata{}, nil
}

func (f *fakeTautulli) GetImage(_ context.Context, thumb string) ([]byte, string, error) {
	f.mu.Lock()
	f.imageCalls = append(f.imageCalls, thumb)
	f.mu.Unlock()
	if f.imageErr != nil {
		return nil, "", f.imageErr
	}
	return []byte("poster-bytes"), "image/jpeg", nil
}

func (f *fakeTautulli) imageCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.imageCalls)
}

// fakeImageSource implements ImageSource as the direct media-server fallback.
type fakeImageSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeImageSource) GetImage(_ context.Context, _ string) ([]byte, string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("fallback-bytes"), "image/jpeg", nil
}

// fakeKomga implements komga.ClientInterface for fetch tests.
type fakeKomga struct {
	books    []kmodels.Book
	booksErr error

	mu         sync.Mutex
	coverCalls []string
}

func (f *fakeKomga) Ping(_ context.Context) error { return nil }

func (f *fakeKomga) GetReadBooksPage(_ context.Context, _, size int) (*kmodels.Page[kmodels.Book], error) {
	return &kmodels.Page[kmodels.Book]{Content: f.books, Size: size, Last: true}, nil
}

func (f *fakeKomga) GetReadBooks(_ context.Context) ([]kmodels.Book, error) {
	if f.booksErr != nil {
		return nil, f.booksErr
	}
	return f.books, nil
}

func (f *fakeKomga) GetSeriesPage(_ context.Context, _, _ int) (*kmodels.Page[kmodels.Series], error) {
	return &kmodels.Page[kmodels.Series]{Last: true}, nil
}

func (f *fakeKomga) GetSeriesCover(_ context.Context, seriesID string) ([]byte, string, error) {
	f.mu.Lock()
	f.coverCalls = append(f.coverCalls, seriesID)
	f.mu.Unlock()
	return []byte("cover-bytes"), "image/jpeg", nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events map[models.ContentType]int
}

func (f *fakeNotifier) BroadcastFetchCompleted(contentType models.ContentType, itemCount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = make(map[models.ContentType]int)
	}
	f.events[contentType] = itemCount
}

func fetchTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	return &config.Config{
		Komga: config.KomgaConfig{Enabled: true},
		Fetch: config.FetchConfig{
			PageSize:           100,
			SnapshotDir:        filepath.Join(dir, "snapshots"),
			ImageDir:           filepath.Join(dir, "images"),
			ImageBatchSize:     4,
			ImageTimeout:       5 * time.Second,
			ImageRatePerSecond: 1000,
		},
	}
}

func watchedRecord(ratingKey int64, title, thumb string) tmodels.HistoryRecord {
	return tmodels.HistoryRecord{
		RatingKey: ratingKey,
		Title:     title,
		MediaType: "movie",
		Thumb:     thumb,
	}
}

func TestRunner_WritesSnapshotsAndImages(t *testing.T) {
	t.Parallel()

	cfg := fetchTestConfig(t)
	tc := &fakeTautulli{records: map[string][]tmodels.HistoryRecord{
		"movie": {
			watchedRecord(1, "Alpha", "/library/metadata/1/thumb"),
			watchedRecord(2, "Beta", "/library/metadata/2/thumb"),
		},
	}}
	kc := &fakeKomga{books: []kmodels.Book{
		{ID: "b1", SeriesID: "s1", SeriesTitle: "Saga"},
	}}
	notifier := &fakeNotifier{}

	runner := NewRunner(cfg, tc, &fakeImageSource{}, kc, notifier)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Snapshots exist for each content type
	movies, _, err := snapshot.Read[tmodels.HistoryRecord](snapshot.PathFor(cfg.Fetch.SnapshotDir, models.ContentTypeMovies))
	if err != nil {
		t.Fatalf("Movie snapshot read failed: %v", err)
	}
	if len(movies) != 2 {
		t.Errorf("Expected 2 movie records, got %d", len(movies))
	}
	if _, _, err := snapshot.Read[tmodels.HistoryRecord](snapshot.PathFor(cfg.Fetch.SnapshotDir, models.ContentTypeTV)); err != nil {
		t.Errorf("TV snapshot read failed: %v", err)
	}
	comics, _, err := snapshot.Read[kmodels.Book](snapshot.PathFor(cfg.Fetch.SnapshotDir, models.ContentTypeComics))
	if err != nil {
		t.Fatalf("Comics snapshot read failed: %v", err)
	}
	if len(comics) != 1 {
		t.Errorf("Expected 1 comic record, got %d", len(comics))
	}

	// Posters and covers landed on disk
	for _, filename := range []string{
		"library_metadata_1_thumb.jpg",
		"library_metadata_2_thumb.jpg",
		"series_s1.jpg",
	} {
		if _, err := os.Stat(filepath.Join(cfg.Fetch.ImageDir, filename)); err != nil {
			t.Errorf("Expected image %s on disk: %v", filename, err)
		}
	}

	// Completion notifications fired per content type
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if notifier.events[models.ContentTypeMovies] != 2 {
		t.Errorf("Expected movies notification with count 2, got %d", notifier.events[models.ContentTypeMovies])
	}
	if notifier.events[models.ContentTypeComics] != 1 {
		t.Errorf("Expected comics notification with count 1, got %d", notifier.events[models.ContentTypeComics])
	}
}

func TestRunner_SkipsExistingImages(t *testing.T) {
	t.Parallel()

	cfg := fetchTestConfig(t)
	tc := &fakeTautulli{records: map[string][]tmodels.HistoryRecord{
		"movie": {watchedRecord(1, "Alpha", "/thumb/1")},
	}}

	if err := os.MkdirAll(cfg.Fetch.ImageDir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	existing := filepath.Join(cfg.Fetch.ImageDir, "thumb_1.jpg")
	if err := os.WriteFile(existing, []byte("already-here"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	runner := NewRunner(cfg, tc, nil, nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if tc.imageCallCount() != 0 {
		t.Errorf("Expected no image fetch for existing file, got %d calls", tc.imageCallCount())
	}
	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "already-here" {
		t.Error("Expected existing file untouched")
	}
}

func TestRunner_DeduplicatesThumbs(t *testing.T) {
	t.Parallel()

	cfg := fetchTestConfig(t)
	tc := &fakeTautulli{records: map[string][]tmodels.HistoryRecord{
		"movie": {
			watchedRecord(1, "Alpha", "/thumb/same"),
			watchedRecord(2, "Alpha again", "/thumb/same"),
			watchedRecord(3, "No art", ""),
		},
	}}

	runner := NewRunner(cfg, tc, nil, nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if tc.imageCallCount() != 1 {
		t.Errorf("Expected 1 download for repeated thumb, got %d", tc.imageCallCount())
	}
}

func TestRunner_FallbackOnProxyFailure(t *testing.T) {
	t.Parallel()

	cfg := fetchTestConfig(t)
	tc := &fakeTautulli{
		records: map[string][]tmodels.HistoryRecord{
			"movie": {watchedRecord(1, "Alpha", "/thumb/1")},
		},
		imageErr: errors.New("proxy down"),
	}
	fallback := &fakeImageSource{}

	runner := NewRunner(cfg, tc, fallback, nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	fallback.mu.Lock()
	calls := fallback.calls
	fallback.mu.Unlock()
	if calls != 1 {
		t.Errorf("Expected 1 fallback call, got %d", calls)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Fetch.ImageDir, "thumb_1.jpg"))
	if err != nil {
		t.Fatalf("Expected fallback image on disk: %v", err)
	}
	if string(data) != "fallback-bytes" {
		t.Error("Expected fallback bytes written")
	}
}

func TestRunner_ImageFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	cfg := fetchTestConfig(t)
	tc := &fakeTautulli{
		records: map[string][]tmodels.HistoryRecord{
			"movie": {watchedRecord(1, "Alpha", "/thumb/1")},
		},
		imageErr: errors.New("proxy down"),
	}

	// No fallback configured: the download fails but the run succeeds
	runner := NewRunner(cfg, tc, nil, nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Expected image failures to be skipped, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.Fetch.ImageDir, "thumb_1.jpg")); !os.IsNotExist(err) {
		t.Error("Expected no image written on failure")
	}
}

func TestRunner_ContentTypeFailuresAreJoined(t *testing.T) {
	t.Parallel()

	cfg := fetchTestConfig(t)
	tc := &fakeTautulli{historyErr: errors.New("upstream down")}
	kc := &fakeKomga{books: []kmodels.Book{{ID: "b1", SeriesID: "s1"}}}

	runner := NewRunner(cfg, tc, nil, kc, nil)
	err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("Expected joined error from failed content types")
	}

	// Comics still fetched despite history failures
	comics, _, readErr := snapshot.Read[kmodels.Book](snapshot.PathFor(cfg.Fetch.SnapshotDir, models.ContentTypeComics))
	if readErr != nil {
		t.Fatalf("Comics snapshot read failed: %v", readErr)
	}
	if len(comics) != 1 {
		t.Errorf("Expected comics fetched independently, got %d records", len(comics))
	}
}

func TestImageFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		thumb string
		want  string
	}{
		{thumb: "/library/metadata/42/thumb", want: "library_metadata_42_thumb.jpg"},
		{thumb: "plain", want: "plain.jpg"},
		{thumb: "/trailing/", want: "trailing.jpg"},
	}

	for _, tt := range tests {
		if got := imageFilename(tt.thumb); got != tt.want {
			t.Errorf("imageFilename(%q) = %q, want %q", tt.thumb, got, tt.want)
		}
	}
}
