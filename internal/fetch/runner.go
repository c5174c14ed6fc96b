// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package fetch implements the one-shot data fetch job: page through the
// remote history and comics APIs, write one JSON snapshot per content type,
// and download poster images to local storage.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/watchdeck/watchdeck/internal/config"
	"github.com/watchdeck/watchdeck/internal/komga"
	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/metrics"
	"github.com/watchdeck/watchdeck/internal/models"
	"github.com/watchdeck/watchdeck/internal/snapshot"
	"github.com/watchdeck/watchdeck/internal/tautulli"
)

// Notifier receives completion events after each content type refresh.
// Satisfied by the websocket hub; may be nil for the CLI tool.
type Notifier interface {
	BroadcastFetchCompleted(contentType models.ContentType, itemCount int)
}

// ImageSource fetches raw image bytes for a reference.
type ImageSource interface {
	GetImage(ctx context.Context, thumb string) ([]byte, string, error)
}

// Runner executes a full fetch of all configured content types.
type Runner struct {
	cfg      *config.Config
	tautulli tautulli.ClientInterface
	fallback ImageSource
	komga    komga.ClientInterface
	notifier Notifier
	limiter  *rate.Limiter
}

// NewRunner creates a fetch runner. fallback is the direct media server
// image source used when the image proxy fails; komgaClient and notifier
// may be nil.
func NewRunner(cfg *config.Config, tautulliClient tautulli.ClientInterface, fallback ImageSource, komgaClient komga.ClientInterface, notifier Notifier) *Runner {
	return &Runner{
		cfg:      cfg,
		tautulli: tautulliClient,
		fallback: fallback,
		komga:    komgaClient,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Fetch.ImageRatePerSecond), cfg.Fetch.ImageBatchSize),
	}
}

// Run fetches every content type. A failure in one content type does not
// abort the others; all failures are joined into the returned error.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	var errs []error

	if err := r.fetchWatched(ctx, models.ContentTypeMovies, "movie"); err != nil {
		logging.Error().Err(err).Msg("Movie fetch failed")
		errs = append(errs, fmt.Errorf("movies: %w", err))
	}

	if err := r.fetchWatched(ctx, models.ContentTypeTV, "episode"); err != nil {
		logging.Error().Err(err).Msg("TV fetch failed")
		errs = append(errs, fmt.Errorf("tv: %w", err))
	}

	if r.komga != nil && r.cfg.Komga.Enabled {
		if err := r.fetchComics(ctx); err != nil {
			logging.Error().Err(err).Msg("Comics fetch failed")
			errs = append(errs, fmt.Errorf("comics: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logging.Info().Dur("duration", time.Since(start)).Msg("Fetch run completed")
	return nil
}

// fetchWatched pages through the watch-history service for one media type,
// writes the snapshot and downloads the referenced posters.
func (r *Runner) fetchWatched(ctx context.Context, contentType models.ContentType, mediaType string) error {
	logging.Info().Str("content_type", string(contentType)).Msg("Fetching watch history")

	records, err := r.tautulli.GetHistory(ctx, mediaType)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	path := snapshot.PathFor(r.cfg.Fetch.SnapshotDir, contentType)
	if err := snapshot.Write(path, records, time.Now()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	metrics.FetchRecordsProcessed.WithLabelValues(string(contentType)).Add(float64(len(records)))
	logging.Info().
		Str("content_type", string(contentType)).
		Int("records", len(records)).
		Str("path", path).
		Msg("Snapshot written")

	jobs := make([]imageJob, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i := range records {
		thumb := records[i].Thumb
		if thumb == "" || seen[thumb] {
			continue
		}
		seen[thumb] = true
		jobs = append(jobs, r.posterJob(thumb))
	}
	r.downloadImages(ctx, jobs)

	if r.notifier != nil {
		r.notifier.BroadcastFetchCompleted(contentType, len(records))
	}
	return nil
}

// fetchComics pages through the comics service's read books, writes the
// snapshot and downloads the covers of every distinct series.
func (r *Runner) fetchComics(ctx context.Context) error {
	logging.Info().Msg("Fetching read comics")

	books, err := r.komga.GetReadBooks(ctx)
	if err != nil {
		return fmt.Errorf("fetch read books: %w", err)
	}

	path := snapshot.PathFor(r.cfg.Fetch.SnapshotDir, models.ContentTypeComics)
	if err := snapshot.Write(path, books, time.Now()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	metrics.FetchRecordsProcessed.WithLabelValues(string(models.ContentTypeComics)).Add(float64(len(books)))
	logging.Info().Int("records", len(books)).Str("path", path).Msg("Snapshot written")

	jobs := make([]imageJob, 0)
	seen := make(map[string]bool)
	for i := range books {
		seriesID := books[i].SeriesID
		if seriesID == "" || seen[seriesID] {
			continue
		}
		seen[seriesID] = true
		jobs = append(jobs, r.coverJob(seriesID))
	}
	r.downloadImages(ctx, jobs)

	if r.notifier != nil {
		r.notifier.BroadcastFetchCompleted(models.ContentTypeComics, len(books))
	}
	return nil
}
