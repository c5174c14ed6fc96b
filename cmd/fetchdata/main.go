// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package main is the one-shot fetch tool. It pages through the configured
// remote APIs, writes one JSON snapshot per content type and downloads
// poster images to local storage, then exits. There are no flags; all
// behavior comes from configuration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/watchdeck/watchdeck/internal/config"
	"github.com/watchdeck/watchdeck/internal/fetch"
	"github.com/watchdeck/watchdeck/internal/komga"
	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/plex"
	"github.com/watchdeck/watchdeck/internal/tautulli"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("snapshot_dir", cfg.Fetch.SnapshotDir).
		Str("image_dir", cfg.Fetch.ImageDir).
		Msg("Starting fetch run")

	tautulliClient := tautulli.NewCircuitBreakerClient(&cfg.Tautulli)
	tautulliClient.SetPageSize(cfg.Fetch.PageSize)
	plexClient := plex.NewClient(&cfg.Plex)

	var komgaClient komga.ClientInterface
	if cfg.Komga.Enabled {
		komgaClient = komga.NewClient(&cfg.Komga)
	}

	// SIGINT/SIGTERM cancel the run; in-flight batches finish, the rest
	// are skipped.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := fetch.NewRunner(cfg, tautulliClient, plexClient, komgaClient, nil)
	if err := runner.Run(ctx); err != nil {
		logging.Error().Err(err).Msg("Fetch run finished with errors")
		os.Exit(1)
	}

	logging.Info().Msg("Fetch run finished")
}
