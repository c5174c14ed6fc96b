// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/watchdeck/watchdeck/internal/logging"
)

// loginRequest is the POST /api/auth/login body.
type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/auth/login, exchanging the admin password for a
// bearer token used on ranking write endpoints.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.passwords == nil || h.jwt == nil {
		rw.ServiceUnavailable("authentication is not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}

	if !h.passwords.Verify(req.Password) {
		logging.Ctx(r.Context()).Warn().Msg("Login attempt with invalid password")
		rw.Unauthorized("invalid password")
		return
	}

	token, err := h.jwt.GenerateToken("admin")
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Token generation failed")
		rw.InternalError("failed to generate token")
		return
	}

	rw.Success(map[string]interface{}{
		"token":      token,
		"expires_in": int(h.config.Security.SessionTimeout.Seconds()),
	})
}
