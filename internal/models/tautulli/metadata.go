// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package tautulli

import "github.com/goccy/go-json"

// Metadata represents the API response from Tautulli's get_metadata endpoint.
// The payload is passed through to dashboard clients untouched, so the inner
// record stays raw.
type Metadata struct {
	Response MetadataResponse `json:"response"`
}

type MetadataResponse struct {
	Result  string          `json:"result"`
	Message *string         `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}
