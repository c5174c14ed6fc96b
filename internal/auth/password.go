// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost balances verification latency against brute-force resistance.
const bcryptCost = 12

// PasswordVerifier checks the admin password. A plaintext configured
// password is hashed once at startup so every check goes through bcrypt's
// timing-safe comparison.
type PasswordVerifier struct {
	hash []byte
}

// NewPasswordVerifier builds a verifier from either a precomputed bcrypt
// hash or a plaintext password. The hash takes precedence when both are set.
func NewPasswordVerifier(password, passwordHash string) (*PasswordVerifier, error) {
	if passwordHash != "" {
		// Validate the hash is parseable before accepting it
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		return &PasswordVerifier{hash: []byte(passwordHash)}, nil
	}

	if password == "" {
		return nil, fmt.Errorf("admin password is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("admin password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	return &PasswordVerifier{hash: hash}, nil
}

// Verify reports whether the provided password matches.
func (v *PasswordVerifier) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword(v.hash, []byte(password)) == nil
}
