// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status            string  `json:"status"` // healthy or degraded
	DatabaseConnected bool    `json:"database_connected"`
	Storage           string  `json:"storage"`
	FeedClients       int     `json:"feed_clients"`
	Uptime            float64 `json:"uptime_seconds"`
}

func (h *Handler) databaseUp(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.db != nil && h.db.Ping(ctx) == nil
}

// Health reports dependency state. It always answers 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:            "healthy",
		DatabaseConnected: h.databaseUp(r.Context()),
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if !status.DatabaseConnected {
		status.Status = "degraded"
	}
	if h.objects != nil {
		status.Storage = h.objects.Name()
	}
	if h.feed != nil {
		status.FeedClients = h.feed.GetClientCount()
	}
	WriteSuccess(w, r, status)
}

// HealthLive is the liveness probe: 200 while the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe: 503 until the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.databaseUp(r.Context()) {
		NewResponseWriter(w, r).ServiceUnavailable("database is not reachable")
		return
	}
	WriteSuccess(w, r, map[string]bool{"ready": true})
}
