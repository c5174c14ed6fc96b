// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlexibleTime unmarshals upstream timestamp fields that arrive either as
// unix seconds (number or numeric string) or as an ISO 8601 string. All
// downstream code sees a plain time.Time.
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexibleTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}

	// Unix seconds as a bare number
	if s[0] != '"' {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = time.Unix(secs, 0).UTC()
		return nil
	}

	unquoted := strings.Trim(s, `"`)

	// Unix seconds as a numeric string
	if secs, err := strconv.ParseInt(unquoted, 10, 64); err == nil {
		t.Time = time.Unix(secs, 0).UTC()
		return nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, unquoted); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}

	return fmt.Errorf("unrecognized timestamp format %q", unquoted)
}

// MarshalJSON implements json.Marshaler, emitting RFC 3339.
func (t FlexibleTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Time.UTC().Format(time.RFC3339) + `"`), nil
}
