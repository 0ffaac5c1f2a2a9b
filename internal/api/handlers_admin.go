// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"net/http"
)

// ListSessions returns one page of sessions, newest first.
// Query: page (from 1), page_size (default from configuration, max 100).
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	page, err := h.booth.ListSessions(r.Context(), queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination(page.Sessions, &PaginationMeta{
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		HasMore:    page.Page < page.TotalPages,
	})
}

// CreateSession pre-creates a session with a fresh code for an operator.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	detail, err := h.booth.CreateSession(r.Context())
	if err != nil {
		RespondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(detail)
}

// GetSession returns a session with its code record and photos.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	detail, err := h.booth.GetSession(r.Context(), urlParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, detail)
}

// Earnings reports sessions and revenue for ?period=day|month|year|all.
func (h *Handler) Earnings(w http.ResponseWriter, r *http.Request) {
	summary, err := h.booth.Earnings(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, summary)
}
