// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package authz

import (
	"errors"
	"net/http"

	"github.com/tomtom215/snapbooth/internal/auth"
	"github.com/tomtom215/snapbooth/internal/logging"
)

// ErrForbidden is passed to the deny callback when a role lacks permission.
var ErrForbidden = errors.New("insufficient permissions")

// Middleware enforces policy on authenticated requests.
type Middleware struct {
	enforcer *Enforcer
	deny     auth.DenyFunc
}

// NewMiddleware creates a new authorization middleware. deny writes the
// rejection for ErrForbidden, auth.ErrUnauthenticated or an internal error.
func NewMiddleware(enforcer *Enforcer, deny auth.DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Forbidden", http.StatusForbidden)
		}
	}
	return &Middleware{enforcer: enforcer, deny: deny}
}

// Require returns middleware allowing only roles with action on object.
// It must run after auth.Middleware.Authenticate.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.GetClaims(r.Context())
			if claims == nil {
				m.deny(w, r, auth.ErrUnauthenticated)
				return
			}

			allowed, err := m.enforcer.Enforce(claims.Role, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				m.deny(w, r, err)
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Debug().
					Str("role", claims.Role).
					Str("object", object).
					Str("action", action).
					Msg("Access denied")
				m.deny(w, r, ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
