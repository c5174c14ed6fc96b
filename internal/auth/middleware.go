// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/watchdeck/watchdeck/internal/logging"
)

type contextKey string

// ClaimsContextKey is the request context key holding validated JWT claims.
const ClaimsContextKey contextKey = "claims"

// Middleware enforces bearer authentication on mutating routes. When no
// admin credential is configured the middleware is disabled and every
// request passes through, matching single-user local deployments.
type Middleware struct {
	jwtManager *JWTManager
	enabled    bool
}

// NewMiddleware creates an authentication middleware. A nil jwtManager
// disables enforcement.
func NewMiddleware(jwtManager *JWTManager, enabled bool) *Middleware {
	return &Middleware{
		jwtManager: jwtManager,
		enabled:    enabled && jwtManager != nil,
	}
}

// Enabled reports whether authentication is enforced.
func (m *Middleware) Enabled() bool {
	return m.enabled
}

// RequireAuth is chi-compatible middleware that enforces a valid bearer
// token, falling back to the "token" cookie when no Authorization header is
// present.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Error().Err(err).Msg("Token validation failed")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken pulls the JWT from the Authorization header or cookie.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie("token")
		if err != nil {
			return "", fmt.Errorf("unauthorized: missing token")
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("unauthorized: invalid authorization header")
	}

	return parts[1], nil
}

// ClaimsFromContext returns validated claims if the request was
// authenticated.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}
