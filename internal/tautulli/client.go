// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package tautulli implements the client for the Tautulli v2 HTTP API, the
// primary watch-history data source.
//
// Resilience mechanisms:
//   - Rate limiting: exponential backoff (1s, 2s, 4s, 8s, 16s) on HTTP 429,
//     honoring the Retry-After header when present
//   - Retries: max 5 attempts for rate-limited requests
//   - Circuit breaker wrapper (see circuit_breaker.go)
//   - Context support on every method for cancellation and timeouts
package tautulli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/watchdeck/watchdeck/internal/config"
	"github.com/watchdeck/watchdeck/internal/metrics"
	tmodels "github.com/watchdeck/watchdeck/internal/models/tautulli"
)

// maxErrorBodySize limits how much of a response body is read for error
// reporting, preventing unbounded allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// ClientInterface defines the Tautulli API operations Watchdeck uses.
// Implemented by Client for production and by mocks for testing.
//
// Thread Safety: all methods are safe for concurrent use.
type ClientInterface interface {
	Ping(ctx context.Context) error
	GetHistoryPage(ctx context.Context, mediaType string, start, length int) (*tmodels.History, error)
	GetHistory(ctx context.Context, mediaType string) ([]tmodels.HistoryRecord, error)
	GetMetadata(ctx context.Context, ratingKey string) (*tmodels.Metadata, error)
	GetImage(ctx context.Context, thumb string) ([]byte, string, error)
}

// Client handles communication with the Tautulli HTTP API.
//
// Example:
//
//	client := tautulli.NewClient(&cfg.Tautulli)
//	if err := client.Ping(ctx); err != nil {
//	    logging.Fatal().Err(err).Msg("Tautulli not reachable")
//	}
//	records, err := client.GetHistory(ctx, "movie")
type Client struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	pageSize       int
	maxRetries     int           // Maximum retries for rate limiting
	retryBaseDelay time.Duration // Base delay for exponential backoff
}

// NewClient creates a new Tautulli API client with the provided configuration.
func NewClient(cfg *config.TautulliConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		pageSize:       1000,
		maxRetries:     5,
		retryBaseDelay: 1 * time.Second,
	}
}

// SetPageSize overrides the history page length (default 1000).
func (c *Client) SetPageSize(n int) {
	if n > 0 {
		c.pageSize = n
	}
}

// doRequestWithRateLimit performs an HTTP request with automatic rate limit
// handling. Implements exponential backoff for HTTP 429 responses; the
// context cancels backoff waits.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close() // Will retry anyway

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		// Exponential backoff: 1s, 2s, 4s, 8s, 16s
		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))

		// Retry-After header takes precedence (RFC 6585)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if d, ok := parseRetryAfter(retryAfter, time.Now()); ok {
				delay = d
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// parseRetryAfter interprets a Retry-After value, which RFC 9110 allows as
// either delay seconds or an HTTP date. Returns false when the value is
// unusable or already in the past.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	if when, err := http.ParseTime(value); err == nil {
		if delay := when.Sub(now); delay > 0 {
			return delay, true
		}
	}

	return 0, false
}

// makeRequest handles common Tautulli API request boilerplate: builds the URL
// with API key and command, performs the request, checks HTTP status, decodes
// JSON, and validates the Tautulli response wrapper.
func (c *Client) makeRequest(ctx context.Context, cmd string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	params.Set("cmd", cmd)

	reqURL := fmt.Sprintf("%s/api/v2?%s", c.baseURL, params.Encode())

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	metrics.RecordUpstreamRequest("tautulli", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to make %s request: %w", cmd, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", cmd, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", cmd, err)
	}

	return nil
}

// Ping verifies connectivity to the Tautulli API.
func (c *Client) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("cmd", "arnold")

	reqURL := fmt.Sprintf("%s/api/v2?%s", c.baseURL, params.Encode())

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return fmt.Errorf("failed to ping Tautulli: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Tautulli ping failed with status: %d", resp.StatusCode)
	}

	return nil
}

// GetHistoryPage fetches one page of playback history for a media type.
func (c *Client) GetHistoryPage(ctx context.Context, mediaType string, start, length int) (*tmodels.History, error) {
	params := url.Values{}
	params.Set("media_type", mediaType)
	params.Set("start", strconv.Itoa(start))
	params.Set("length", strconv.Itoa(length))
	params.Set("order_column", "date")
	params.Set("order_dir", "desc")

	var history tmodels.History
	if err := c.makeRequest(ctx, "get_history", params, &history); err != nil {
		return nil, err
	}

	if history.Response.Result != "success" {
		msg := "unknown error"
		if history.Response.Message != nil {
			msg = *history.Response.Message
		}
		return nil, fmt.Errorf("get_history request failed: %s", msg)
	}

	return &history, nil
}

// GetHistory pages through the full playback history for a media type.
// Pages are requested strictly sequentially: page N+1 only after page N
// completes, respecting upstream pagination cursors. Records are filtered
// to an exact media-type match in case server-side filtering is inexact.
func (c *Client) GetHistory(ctx context.Context, mediaType string) ([]tmodels.HistoryRecord, error) {
	var all []tmodels.HistoryRecord

	for start := 0; ; start += c.pageSize {
		page, err := c.GetHistoryPage(ctx, mediaType, start, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("history page at offset %d: %w", start, err)
		}

		records := page.Response.Data.Data
		for i := range records {
			if records[i].MediaType == mediaType {
				all = append(all, records[i])
			}
		}

		// A short or empty page ends pagination
		if len(records) < c.pageSize {
			break
		}
	}

	return all, nil
}

// GetMetadata fetches single-item metadata for a rating key. The payload is
// passed through to callers untouched.
func (c *Client) GetMetadata(ctx context.Context, ratingKey string) (*tmodels.Metadata, error) {
	params := url.Values{}
	params.Set("rating_key", ratingKey)

	var meta tmodels.Metadata
	if err := c.makeRequest(ctx, "get_metadata", params, &meta); err != nil {
		return nil, err
	}

	if meta.Response.Result != "success" {
		msg := "unknown error"
		if meta.Response.Message != nil {
			msg = *meta.Response.Message
		}
		return nil, fmt.Errorf("get_metadata request failed: %s", msg)
	}

	return &meta, nil
}

// GetImage fetches poster bytes through Tautulli's pms_image_proxy command.
// Returns the image bytes and the response content type.
func (c *Client) GetImage(ctx context.Context, thumb string) ([]byte, string, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("cmd", "pms_image_proxy")
	params.Set("img", thumb)

	reqURL := fmt.Sprintf("%s/api/v2?%s", c.baseURL, params.Encode())

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	metrics.RecordUpstreamRequest("tautulli", err, time.Since(start))
	if err != nil {
		return nil, "", fmt.Errorf("failed to make pms_image_proxy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("pms_image_proxy request failed with status %d", resp.StatusCode)
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
