// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/models"
)

type contextKey string

// ClaimsContextKey holds the authenticated *Claims.
const ClaimsContextKey contextKey = "claims"

// CookieName is the cookie carrying the session token.
const CookieName = "auth_token"

// DenyFunc writes a rejection. err is ErrUnauthenticated, ErrTokenRevoked or
// a validation failure.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests.
type Middleware struct {
	service  *Service
	authMode string
	deny     DenyFunc
}

// NewMiddleware creates the middleware. authMode "none" authenticates every
// request as a development admin.
func NewMiddleware(service *Service, authMode string, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}
	}
	return &Middleware{service: service, authMode: authMode, deny: deny}
}

// devClaims stand in for a user when authentication is disabled.
var devClaims = &Claims{
	Username:         "developer",
	Role:             models.RoleAdmin,
	RegisteredClaims: jwt.RegisteredClaims{Subject: "developer", ID: "developer"},
}

// Authenticate rejects requests without a valid, unrevoked token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == "none" {
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), devClaims)))
			return
		}

		token := extractToken(r)
		if token == "" {
			m.deny(w, r, ErrUnauthenticated)
			return
		}

		claims, err := m.service.Verify(r.Context(), token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token rejected")
			if !errors.Is(err, ErrTokenRevoked) {
				err = errors.Join(ErrUnauthenticated, err)
			}
			m.deny(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims)))
	})
}

// withIdentity stores claims and tags log lines and events with the user.
func withIdentity(ctx context.Context, claims *Claims) context.Context {
	return logging.ContextWithUsername(WithClaims(ctx, claims), claims.Username)
}

// extractToken reads a bearer header, falling back to the cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return ""
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// GetClaims returns the authenticated claims, or nil.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims) //nolint:errcheck // nil when absent
	return claims
}

// SetAuthCookie sets the HTTP-only session cookie.
func SetAuthCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie expires the session cookie.
func ClearAuthCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
