// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/snapbooth/internal/audit"
)

// maxAuditExport bounds a single export download.
const maxAuditExport = 10000

// ListAudit returns one page of the audit trail, newest first.
// Query: type (comma-separated), actor, target, since and until (RFC 3339),
// page (from 1) and page_size (default 50, max 500).
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	store := h.audit.Store()
	if store == nil {
		NewResponseWriter(w, r).ServiceUnavailable("audit trail is disabled")
		return
	}
	filter, ok := auditFilter(w, r)
	if !ok {
		return
	}

	page := max(queryInt(r, "page"), 1)
	filter.Limit = queryInt(r, "page_size")
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	filter.Limit = min(filter.Limit, audit.MaxQueryLimit)
	filter.Offset = (page - 1) * filter.Limit

	events, err := store.Query(r.Context(), filter)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	total, err := store.Count(r.Context(), filter)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	NewResponseWriter(w, r).SuccessWithPagination(events, &PaginationMeta{
		Page:       page,
		PageSize:   filter.Limit,
		Total:      int(total),
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	})
}

// ExportAudit downloads matching events as ?format=json (default) or cef.
// Takes the same filters as ListAudit.
func (h *Handler) ExportAudit(w http.ResponseWriter, r *http.Request) {
	store := h.audit.Store()
	if store == nil {
		NewResponseWriter(w, r).ServiceUnavailable("audit trail is disabled")
		return
	}
	exporter, err := audit.NewExporter(r.URL.Query().Get("format"))
	if err != nil {
		NewResponseWriter(w, r).ValidationError("format must be json or cef", nil)
		return
	}
	filter, ok := auditFilter(w, r)
	if !ok {
		return
	}

	var events []audit.Event
	for len(events) < maxAuditExport {
		filter.Limit = audit.MaxQueryLimit
		filter.Offset = len(events)
		batch, err := store.Query(r.Context(), filter)
		if err != nil {
			RespondError(w, r, err)
			return
		}
		events = append(events, batch...)
		if len(batch) < audit.MaxQueryLimit {
			break
		}
	}

	data, err := exporter.Export(events)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="snapbooth-audit"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data) //nolint:errcheck // client disconnects are not actionable
}

// auditFilter parses the shared audit query parameters.
func auditFilter(w http.ResponseWriter, r *http.Request) (audit.QueryFilter, bool) {
	q := r.URL.Query()
	filter := audit.QueryFilter{
		ActorName: strings.TrimSpace(q.Get("actor")),
		TargetID:  strings.TrimSpace(q.Get("target")),
	}
	if types := q.Get("type"); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, audit.EventType(t))
			}
		}
	}

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{
		{"since", &filter.StartTime},
		{"until", &filter.EndTime},
	} {
		raw := q.Get(bound.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			NewResponseWriter(w, r).ValidationError(bound.name+" must be an RFC 3339 timestamp", nil)
			return filter, false
		}
		*bound.dst = &t
	}
	return filter, true
}
