// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/watchdeck/watchdeck/internal/auth"
	"github.com/watchdeck/watchdeck/internal/config"
)

// Router wires handlers and middleware into the HTTP routing table.
type Router struct {
	handler        *Handler
	chiMiddleware  *ChiMiddleware
	authMiddleware *auth.Middleware
}

// NewRouter creates a router for the given handler and security settings.
func NewRouter(handler *Handler, cfg *config.SecurityConfig, authMiddleware *auth.Middleware) *Router {
	return &Router{
		handler: handler,
		chiMiddleware: NewChiMiddleware(&ChiMiddlewareConfig{
			CORSAllowedOrigins: cfg.CORSOrigins,
			RateLimitRequests:  cfg.RateLimitReqs,
			RateLimitWindow:    cfg.RateLimitWindow,
			RateLimitDisabled:  cfg.RateLimitDisabled,
		}),
		authMiddleware: authMiddleware,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order to all routes
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Health endpoints with permissive rate limiting for monitoring tools
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Authentication with strict rate limiting against brute force
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitLogin())
		r.Use(APISecurityHeaders())
		r.Post("/login", router.handler.Login)
	})

	// Core proxy endpoints
	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())

		r.Get("/history", router.handler.History)
		r.Get("/history/aggregated/{contentType}", router.handler.HistoryAggregated)
		r.Get("/stats/{contentType}", router.handler.HistoryStats)
		r.Get("/top/{contentType}/{year}", router.handler.TopForYear)
		r.Get("/metadata/{id}", router.handler.Metadata)
		r.Get("/poster", router.handler.Poster)
		r.Get("/ws", router.handler.WebSocket)

		r.Get("/rankings/{contentType}", router.handler.RankingsGet)
		r.With(
			router.chiMiddleware.RateLimitWrite(),
			router.authMiddleware.RequireAuth,
		).Post("/rankings/{contentType}", router.handler.RankingsPost)

		r.With(router.authMiddleware.RequireAuth).Post("/admin/fetch", router.handler.FetchRefresh)

		r.Get("/komga/read-progress", router.handler.KomgaReadProgress)
		r.Get("/komga/series", router.handler.KomgaSeries)
		r.Get("/komga/cover/{seriesId}", router.handler.KomgaCover)
	})

	return r
}
