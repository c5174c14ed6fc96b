// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package main is the entry point for the Watchdeck dashboard server.
//
// Watchdeck proxies a watch-history service (Tautulli), a media server
// (Plex) and an optional comics library (Komga), serves the aggregated
// history API, and hosts the ranked favorites editor endpoints. The server
// runs under a suture supervisor tree and shuts down gracefully on SIGINT
// and SIGTERM.
//
// Configuration is loaded via koanf with layered sources (highest priority
// wins): environment variables, config file (config.yaml), built-in
// defaults. Required settings are TAUTULLI_URL and TAUTULLI_API_KEY;
// missing credentials are a fatal startup error.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/watchdeck/watchdeck/internal/api"
	"github.com/watchdeck/watchdeck/internal/auth"
	"github.com/watchdeck/watchdeck/internal/cache"
	"github.com/watchdeck/watchdeck/internal/config"
	"github.com/watchdeck/watchdeck/internal/fetch"
	"github.com/watchdeck/watchdeck/internal/komga"
	"github.com/watchdeck/watchdeck/internal/logging"
	"github.com/watchdeck/watchdeck/internal/models"
	"github.com/watchdeck/watchdeck/internal/plex"
	"github.com/watchdeck/watchdeck/internal/rankings"
	"github.com/watchdeck/watchdeck/internal/supervisor"
	"github.com/watchdeck/watchdeck/internal/tautulli"
	ws "github.com/watchdeck/watchdeck/internal/websocket"
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
		Str("tautulli_url", cfg.Tautulli.URL).
		Str("mode", cfg.Server.Mode).
		Bool("komga_enabled", cfg.Komga.Enabled).
		Msg("Starting Watchdeck")

	// Durable cache tier. A failure here degrades to memory-only caching
	// rather than aborting startup.
	var store *cache.Store
	store, err = cache.OpenStore(cfg.Cache.Path)
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.Cache.Path).Msg("Durable cache unavailable, using memory tier only")
		store = nil
	}
	defer func() {
		if store != nil {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing cache store")
			}
		}
	}()

	c := cache.New(store, cfg.Cache.TTL)

	// Ranking store and one editor per content type, loaded from disk.
	rankingStore := rankings.NewStore(cfg.Rankings.Dir)
	editors := make(map[models.ContentType]*rankings.Editor, len(models.ContentTypes()))
	for _, contentType := range models.ContentTypes() {
		entries, err := rankingStore.Load(contentType)
		if err != nil {
			logging.Fatal().Err(err).Str("content_type", string(contentType)).Msg("Failed to load ranking file")
		}
		editors[contentType] = rankings.NewEditor(contentType, entries, rankingStore)
	}

	// Upstream clients. The circuit breaker prevents hammering the
	// watch-history service while it is down.
	tautulliClient := tautulli.NewCircuitBreakerClient(&cfg.Tautulli)
	tautulliClient.SetPageSize(cfg.Fetch.PageSize)
	if err := tautulliClient.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Failed to connect to Tautulli (will retry)")
	} else {
		logging.Info().Msg("Connected to Tautulli successfully")
	}

	plexClient := plex.NewClient(&cfg.Plex)

	var komgaClient komga.ClientInterface
	if cfg.Komga.Enabled {
		komgaClient = komga.NewClient(&cfg.Komga)
		if err := komgaClient.Ping(context.Background()); err != nil {
			logging.Warn().Err(err).Msg("Failed to connect to Komga (will retry)")
		} else {
			logging.Info().Msg("Connected to Komga successfully")
		}
	}

	// WebSocket hub receives ranking invalidations from every editor.
	hub := ws.NewHub()
	for _, editor := range editors {
		editor.Subscribe(hub)
	}

	// Auth is enforced on ranking writes only when an admin credential is
	// configured; a single-user local deployment can skip it.
	var jwtManager *auth.JWTManager
	var passwordVerifier *auth.PasswordVerifier
	authConfigured := cfg.Security.AdminPassword != "" || cfg.Security.AdminPasswordHash != ""
	if authConfigured {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		passwordVerifier, err = auth.NewPasswordVerifier(cfg.Security.AdminPassword, cfg.Security.AdminPasswordHash)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize password verifier")
		}
		logging.Info().Msg("Ranking write authentication enabled")
	} else {
		logging.Warn().Msg("No admin password configured, ranking writes are unauthenticated")
	}
	authMiddleware := auth.NewMiddleware(jwtManager, authConfigured)

	handler := api.NewHandler(cfg, tautulliClient, plexClient, komgaClient, c, editors, hub, jwtManager, passwordVerifier)
	handler.SetFetchRunner(fetch.NewRunner(cfg, tautulliClient, plexClient, komgaClient, hub))
	router := api.NewRouter(handler, &cfg.Security, authMiddleware)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.Add(supervisor.NewWebSocketHubService(hub))
	tree.Add(supervisor.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
