// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// AuthLogger records authentication events for the admin area.
// Usernames and e-mail addresses are masked before they are written.
type AuthLogger struct {
	logger zerolog.Logger
}

// NewAuthLogger creates an auth logger on top of the global logger.
func NewAuthLogger() *AuthLogger {
	return &AuthLogger{logger: WithComponent("auth")}
}

// NewAuthLoggerWithLogger creates an auth logger writing to logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAuthLoggerWithLogger(logger zerolog.Logger) *AuthLogger {
	return &AuthLogger{logger: logger.With().Str("component", "auth").Logger()}
}

// LoginSucceeded logs a successful admin login.
func (l *AuthLogger) LoginSucceeded(username, ip string) {
	l.logger.Info().
		Str("event", "login").
		Str("status", "success").
		Str("username", SanitizeUsername(username)).
		Str("ip", ip).
		Msg("Login succeeded")
}

// LoginFailed logs a failed admin login attempt.
func (l *AuthLogger) LoginFailed(username, ip, reason string) {
	l.logger.Warn().
		Str("event", "login").
		Str("status", "failed").
		Str("username", SanitizeUsername(username)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Login failed")
}

// LoggedOut logs a logout and the revoked token id.
func (l *AuthLogger) LoggedOut(username, tokenID string) {
	l.logger.Info().
		Str("event", "logout").
		Str("username", SanitizeUsername(username)).
		Str("token_id", SanitizeToken(tokenID)).
		Msg("Logged out")
}

// UserRegistered logs creation of a new admin-area account.
func (l *AuthLogger) UserRegistered(username, role, by string) {
	l.logger.Info().
		Str("event", "register").
		Str("username", SanitizeUsername(username)).
		Str("role", role).
		Str("registered_by", SanitizeUsername(by)).
		Msg("User registered")
}

// SanitizeToken keeps the first 8 characters of a token or id.
func SanitizeToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:8] + "..."
}

// SanitizeUsername keeps the first two characters of a username.
func SanitizeUsername(username string) string {
	if len(username) <= 2 {
		return username
	}
	return username[:2] + strings.Repeat("*", len(username)-2)
}

// SanitizeEmail masks the local part of an address: "jane@example.com" -> "j***@example.com".
func SanitizeEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return SanitizeUsername(email)
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
