// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
// Missing watch-history credentials are a fatal startup error.
func (c *Config) Validate() error {
	if err := c.validateTautulli(); err != nil {
		return err
	}

	if err := c.validatePlex(); err != nil {
		return err
	}

	if err := c.validateKomga(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateTautulli validates the watch-history service configuration.
// Tautulli is the primary data source and is always required.
func (c *Config) validateTautulli() error {
	if c.Tautulli.URL == "" {
		return fmt.Errorf("TAUTULLI_URL is required")
	}
	if err := validateHTTPURL(c.Tautulli.URL); err != nil {
		return fmt.Errorf("TAUTULLI_URL is invalid: %w", err)
	}
	if c.Tautulli.APIKey == "" {
		return fmt.Errorf("TAUTULLI_API_KEY is required")
	}
	return nil
}

// validatePlex validates the media-server fallback configuration.
// Plex is optional; the poster handler degrades to 503 without a token.
func (c *Config) validatePlex() error {
	if c.Plex.URL == "" && c.Plex.Token == "" {
		return nil
	}
	if c.Plex.URL == "" {
		return fmt.Errorf("PLEX_URL is required when PLEX_TOKEN is set")
	}
	if err := validateHTTPURL(c.Plex.URL); err != nil {
		return fmt.Errorf("PLEX_URL is invalid: %w", err)
	}
	return nil
}

// validateKomga validates the comics-library configuration (only if enabled).
func (c *Config) validateKomga() error {
	if !c.Komga.Enabled {
		return nil
	}
	if c.Komga.URL == "" {
		return fmt.Errorf("KOMGA_URL is required when KOMGA_ENABLED=true")
	}
	if err := validateHTTPURL(c.Komga.URL); err != nil {
		return fmt.Errorf("KOMGA_URL is invalid: %w", err)
	}
	if c.Komga.APIKey == "" {
		return fmt.Errorf("KOMGA_API_KEY is required when KOMGA_ENABLED=true")
	}
	return nil
}

// validateServer validates HTTP server configuration.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "static", "dynamic":
	default:
		return fmt.Errorf("MODE must be 'static' or 'dynamic', got %q", c.Server.Mode)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// validateSecurity validates authentication configuration. Authentication is
// optional; when an admin password is configured a JWT secret must be too.
func (c *Config) validateSecurity() error {
	if c.Security.AdminPassword == "" && c.Security.AdminPasswordHash == "" {
		return nil
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ADMIN_PASSWORD is set")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	return nil
}

// validateLogging validates log output configuration.
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console'")
	}
	return nil
}

// validateHTTPURL checks that a URL is a well-formed http or https URL.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
