// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
)

// Handler upgrades dashboard connections and registers them with the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	username func(r *http.Request) string
}

// NewHandler creates a Handler. Origins must match one of allowedOrigins
// exactly unless the list contains "*". username extracts the
// authenticated user for logging and may be nil.
func NewHandler(hub *Hub, allowedOrigins []string, username func(r *http.Request) string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, allowedOrigins)
			},
		},
		username: username,
	}
}

// CheckOrigin rejects requests without an Origin header to block
// cross-site websocket hijacking from non-browser contexts.
func CheckOrigin(r *http.Request, allowedOrigins []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Str("remote_addr", r.RemoteAddr).Msg("websocket connection rejected: missing Origin header")
		return false
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("websocket connection rejected: origin not allowed")
	return false
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	username := ""
	if h.username != nil {
		username = h.username(r)
	}
	client := NewClient(h.hub, conn, username)
	h.hub.Register <- client
	client.Start()
}
