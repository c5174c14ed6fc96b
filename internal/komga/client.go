// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package komga implements the client for the Komga REST API, the comics
// library data source.
package komga

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
	kmodels "github.com/watchdeck/watchdeck/internal/models/komga"
)

// defaultPageSize is the page length requested from Komga's paged endpoints.
const defaultPageSize = 500

// ClientInterface defines the Komga API operations Watchdeck uses.
type ClientInterface interface {
	Ping(ctx context.Context) error
	GetReadBooksPage(ctx context.Context, page, size int) (*kmodels.Page[kmodels.Book], error)
	GetReadBooks(ctx context.Context) ([]kmodels.Book, error)
	GetSeriesPage(ctx context.Context, page, size int) (*kmodels.Page[kmodels.Series], error)
	GetSeriesCover(ctx context.Context, seriesID string) ([]byte, string, error)
}

// Client handles communication with the Komga REST API.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	pageSize int
}

// NewClient creates a new Komga API client with the provided configuration.
func NewClient(cfg *config.KomgaConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		pageSize: defaultPageSize,
	}
}

// get performs an authenticated GET against a Komga API path.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.RecordUpstreamRequest("komga", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("komga request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("komga %s returned status %d", path, resp.StatusCode)
	}

	return resp, nil
}

// Ping verifies connectivity to the Komga API.
func (c *Client) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("page", "0")
	params.Set("size", "1")

	resp, err := c.get(ctx, "/api/v1/series", params)
	if err != nil {
		return fmt.Errorf("failed to ping Komga: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// GetReadBooksPage fetches one page of books with READ status.
func (c *Client) GetReadBooksPage(ctx context.Context, page, size int) (*kmodels.Page[kmodels.Book], error) {
	params := url.Values{}
	params.Set("read_status", "READ")
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	params.Set("sort", "readProgress.readDate,desc")

	resp, err := c.get(ctx, "/api/v1/books", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result kmodels.Page[kmodels.Book]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode books page: %w", err)
	}

	return &result, nil
}

// GetReadBooks pages through all books with READ status. Pages are requested
// strictly sequentially until the last page is reached.
func (c *Client) GetReadBooks(ctx context.Context) ([]kmodels.Book, error) {
	var all []kmodels.Book

	for page := 0; ; page++ {
		result, err := c.GetReadBooksPage(ctx, page, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("books page %d: %w", page, err)
		}

		all = append(all, result.Content...)

		if result.Last || len(result.Content) == 0 {
			break
		}
	}

	return all, nil
}

// GetSeriesPage fetches one page of series.
func (c *Client) GetSeriesPage(ctx context.Context, page, size int) (*kmodels.Page[kmodels.Series], error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))

	resp, err := c.get(ctx, "/api/v1/series", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result kmodels.Page[kmodels.Series]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode series page: %w", err)
	}

	return &result, nil
}

// GetSeriesCover fetches the cover thumbnail for a series.
func (c *Client) GetSeriesCover(ctx context.Context, seriesID string) ([]byte, string, error) {
	reqURL := fmt.Sprintf("%s/api/v1/series/%s/thumbnail", c.baseURL, url.PathEscape(seriesID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.RecordUpstreamRequest("komga", err, time.Since(start))
	if err != nil {
		return nil, "", fmt.Errorf("komga cover request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("komga cover for series %s returned status %d", seriesID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read cover bytes: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return data, contentType, nil
}
