// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package config provides centralized configuration for all Watchdeck
// components: upstream data sources (Tautulli, Plex, Komga), the HTTP
// server, the client cache, ranking storage, the offline fetch tool,
// security, and logging.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment
// variables and config files.
type Config struct {
	Tautulli TautulliConfig `koanf:"tautulli"`
	Plex     PlexConfig     `koanf:"plex"`   // Optional: direct media-server access for poster art
	Komga    KomgaConfig    `koanf:"komga"`  // Optional: comics library passthrough
	Server   ServerConfig   `koanf:"server"`
	Cache    CacheConfig    `koanf:"cache"`
	Rankings RankingsConfig `koanf:"rankings"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// TautulliConfig holds the watch-history service connection settings.
// Tautulli is the primary data source and is always required.
type TautulliConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
}

// PlexConfig holds direct media-server settings used as a fallback for
// poster fetching when Tautulli's image proxy cannot serve a thumb.
type PlexConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`
}

// KomgaConfig holds comics-library connection settings. When disabled,
// the comics passthrough routes return 503.
type KomgaConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	APIKey  string `koanf:"api_key"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Mode selects how the dashboard UI consumes data: "static" reads
	// pre-fetched snapshot files, "dynamic" proxies upstreams live. The
	// server exposes the same routes in both modes.
	Mode string `koanf:"mode"`

	// Timeout bounds upstream proxy calls; history aggregation uses its
	// own 60s deadline.
	Timeout time.Duration `koanf:"timeout"`
}

// CacheConfig holds the two-tier client cache settings.
type CacheConfig struct {
	// Path is the BadgerDB directory for the durable tier.
	Path string `koanf:"path"`

	// TTL is how long cached entries stay valid in both tiers.
	TTL time.Duration `koanf:"ttl"`
}

// RankingsConfig holds ranked-favorites storage settings.
type RankingsConfig struct {
	// Dir is the directory holding one JSON ranking file per content type.
	Dir string `koanf:"dir"`
}

// FetchConfig holds settings for the offline data fetch tool.
type FetchConfig struct {
	// PageSize is the history page length requested from Tautulli.
	PageSize int `koanf:"page_size"`

	// SnapshotDir receives the per-content-type snapshot JSON files.
	SnapshotDir string `koanf:"snapshot_dir"`

	// ImageDir receives downloaded poster images.
	ImageDir string `koanf:"image_dir"`

	// ImageBatchSize is how many poster downloads run concurrently.
	ImageBatchSize int `koanf:"image_batch_size"`

	// ImageTimeout bounds each individual poster download.
	ImageTimeout time.Duration `koanf:"image_timeout"`

	// ImageRatePerSecond throttles poster downloads against the upstream.
	ImageRatePerSecond float64 `koanf:"image_rate_per_second"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// AdminPassword gates ranking writes in dynamic mode. Empty disables
	// authentication entirely (trusted-network deployment).
	AdminPassword string `koanf:"admin_password"`

	// AdminPasswordHash is the bcrypt hash alternative to AdminPassword.
	AdminPasswordHash string `koanf:"admin_password_hash"`

	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
