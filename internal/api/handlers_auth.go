// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/snapbooth/internal/audit"
	"github.com/tomtom215/snapbooth/internal/auth"
	"github.com/tomtom215/snapbooth/internal/logging"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// Login issues a token in the body and in the auth_token cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.authLog.LoginFailed(req.Username, r.RemoteAddr, "invalid credentials")
			h.audit.Log(audit.NewRequestEvent(r, audit.EventLoginFailed, audit.OutcomeFailure,
				logging.SanitizeUsername(req.Username), "invalid credentials"))
		}
		RespondError(w, r, err)
		return
	}

	h.authLog.LoginSucceeded(result.User.Username, r.RemoteAddr)
	h.audit.Log(audit.NewRequestEvent(r, audit.EventLoginSucceeded, audit.OutcomeSuccess,
		result.User.Username, "Signed in"))
	auth.SetAuthCookie(w, result.Token, result.ExpiresAt, h.cookieSecure)
	WriteSuccess(w, r, result)
}

// Logout revokes the presented token and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		RespondError(w, r, err)
		return
	}
	h.authLog.LoggedOut(claims.Username, claims.ID)
	h.audit.Log(audit.NewRequestEvent(r, audit.EventLogout, audit.OutcomeSuccess, claims.Username, "Signed out"))
	auth.ClearAuthCookie(w, h.cookieSecure)
	WriteSuccess(w, r, map[string]bool{"logged_out": true})
}

// Register creates an admin-area account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.Registration
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	by := ""
	if claims := auth.GetClaims(r.Context()); claims != nil {
		by = claims.Username
	}
	h.authLog.UserRegistered(user.Username, user.Role, by)
	event := audit.NewRequestEvent(r, audit.EventUserCreated, audit.OutcomeSuccess, by,
		"Account "+user.Username+" created with role "+user.Role)
	event.Target = &audit.Target{ID: user.ID, Type: "user"}
	h.audit.Log(event)
	NewResponseWriter(w, r).Created(user)
}

// Me returns the signed-in user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), auth.GetClaims(r.Context()))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, user)
}
