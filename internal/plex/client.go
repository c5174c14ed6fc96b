// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package plex implements a minimal client for direct media-server access,
// used as the fallback source for poster art when Tautulli's image proxy
// cannot serve a thumb.
package plex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/watchdeck/watchdeck/internal/config"
	"github.com/watchdeck/watchdeck/internal/metrics"
)

// ErrNoToken is returned when no auth token is configured. Callers map this
// to a service-unavailable response; the client never attempts an
// unauthenticated call.
var ErrNoToken = errors.New("plex: no auth token configured")

// Client fetches raw bytes from the media server with token authentication.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a media-server client. Image fetches are bounded by a
// 10 second timeout.
func NewClient(cfg *config.PlexConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HasToken reports whether an auth token is configured.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// GetImage fetches the image at the given thumb path directly from the media
// server, appending the auth token. Returns ErrNoToken when no token is
// configured.
func (c *Client) GetImage(ctx context.Context, thumb string) ([]byte, string, error) {
	if c.token == "" {
		return nil, "", ErrNoToken
	}

	reqURL := fmt.Sprintf("%s%s?X-Plex-Token=%s", c.baseURL, thumb, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.RecordUpstreamRequest("plex", err, time.Since(start))
	if err != nil {
		return nil, "", fmt.Errorf("media server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media server returned status %d for %s", resp.StatusCode, thumb)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image bytes: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return data, contentType, nil
}
