// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/metrics"
)

// imageJob is one poster or cover download: a local filename and the
// source-specific fetch chain.
type imageJob struct {
	filename string
	fetch    func(ctx context.Context) ([]byte, string, error)
}

// posterJob builds a download job for a watch-history poster reference. The
// image proxy is tried first with the direct media server as fallback.
func (r *Runner) posterJob(thumb string) imageJob {
	return imageJob{
		filename: imageFilename(thumb),
		fetch: func(ctx context.Context) ([]byte, string, error) {
			data, contentType, err := r.tautulli.GetImage(ctx, thumb)
			if err == nil {
				return data, contentType, nil
			}
			if r.fallback == nil {
				return nil, "", err
			}
			logging.Debug().Err(err).Str("thumb", thumb).Msg("Image proxy failed, trying media server directly")
			return r.fallback.GetImage(ctx, thumb)
		},
	}
}

// coverJob builds a download job for a comic series cover.
func (r *Runner) coverJob(seriesID string) imageJob {
	return imageJob{
		filename: "series_" + seriesID + ".jpg",
		fetch: func(ctx context.Context) ([]byte, string, error) {
			return r.komga.GetSeriesCover(ctx, seriesID)
		},
	}
}

// downloadImages processes jobs in fixed-size batches to bound outstanding
// connections. Individual failures are logged and skipped; a failing batch
// never blocks subsequent batches.
func (r *Runner) downloadImages(ctx context.Context, jobs []imageJob) {
	if len(jobs) == 0 {
		return
	}

	if err := os.MkdirAll(r.cfg.Fetch.ImageDir, 0o755); err != nil {
		logging.Error().Err(err).Str("dir", r.cfg.Fetch.ImageDir).Msg("Failed to create image directory")
		return
	}

	batchSize := r.cfg.Fetch.ImageBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(jobs); start += batchSize {
		end := start + batchSize
		if end > len(jobs) {
			end = len(jobs)
		}

		var wg sync.WaitGroup
		for _, job := range jobs[start:end] {
			wg.Add(1)
			go func(job imageJob) {
				defer wg.Done()
				r.downloadImage(ctx, job)
			}(job)
		}
		wg.Wait()

		if ctx.Err() != nil {
			logging.Warn().Int("remaining", len(jobs)-end).Msg("Image downloads cancelled")
			return
		}
	}
}

// downloadImage fetches and writes a single image, skipping files that
// already exist locally.
func (r *Runner) downloadImage(ctx context.Context, job imageJob) {
	path := filepath.Join(r.cfg.Fetch.ImageDir, job.filename)

	if _, err := os.Stat(path); err == nil {
		metrics.FetchImageDownloads.WithLabelValues("skipped").Inc()
		return
	}

	if err := r.limiter.Wait(ctx); err != nil {
		metrics.FetchImageDownloads.WithLabelValues("failed").Inc()
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.Fetch.ImageTimeout)
	defer cancel()

	data, _, err := job.fetch(reqCtx)
	if err != nil {
		metrics.FetchImageDownloads.WithLabelValues("failed").Inc()
		logging.Warn().Err(err).Str("filename", job.filename).Msg("Image download failed, skipping")
		return
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		metrics.FetchImageDownloads.WithLabelValues("failed").Inc()
		logging.Warn().Err(err).Str("path", path).Msg("Image write failed, skipping")
		return
	}

	metrics.FetchImageDownloads.WithLabelValues("downloaded").Inc()
}

// imageFilename maps a poster reference to a stable local filename.
func imageFilename(thumb string) string {
	name := strings.Trim(thumb, "/")
	name = strings.ReplaceAll(name, "/", "_")
	return name + ".jpg"
}
