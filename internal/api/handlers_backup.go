// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"net/http"

	"github.com/tomtom215/snapbooth/internal/audit"
	"github.com/tomtom215/snapbooth/internal/auth"
	"github.com/tomtom215/snapbooth/internal/backup"
	"github.com/tomtom215/snapbooth/internal/logging"
)

type createBackupRequest struct {
	Type  string `json:"type" validate:"omitempty,oneof=database full"`
	Notes string `json:"notes" validate:"max=200"`
}

type backupList struct {
	Backups []*backup.Backup `json:"backups"`
	Stats   *backup.Stats    `json:"stats"`
}

func (h *Handler) backupsAvailable(w http.ResponseWriter, r *http.Request) bool {
	if h.backups == nil {
		NewResponseWriter(w, r).ServiceUnavailable(backup.ErrDisabled.Error())
		return false
	}
	return true
}

// ListBackups returns stored backups newest first with summary stats.
// Query: type, status, limit.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if !h.backupsAvailable(w, r) {
		return
	}
	q := r.URL.Query()
	list := h.backups.ListBackups(backup.ListOptions{
		Type:   backup.Type(q.Get("type")),
		Status: backup.Status(q.Get("status")),
		Limit:  queryInt(r, "limit"),
	})
	WriteSuccess(w, r, backupList{Backups: list, Stats: h.backups.GetStats()})
}

// CreateBackup writes an archive synchronously and returns its record.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupsAvailable(w, r) {
		return
	}
	var req createBackupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	b, err := h.backups.CreateBackup(r.Context(), backup.Type(req.Type), req.Notes)
	outcome, description := audit.OutcomeSuccess, "Backup created"
	if err != nil {
		outcome, description = audit.OutcomeFailure, "Backup failed"
	}
	if b != nil {
		h.auditBackup(r, audit.EventBackupCreated, outcome, description, b.ID)
	}
	if err != nil {
		RespondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(b)
}

// GetBackup returns one backup record.
func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupsAvailable(w, r) {
		return
	}
	b, err := h.backups.GetBackup(urlParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, b)
}

// DownloadBackup streams a completed archive. Range requests are honoured.
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupsAvailable(w, r) {
		return
	}
	f, b, err := h.backups.OpenArchive(urlParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Ctx(r.Context()).Debug().Err(cerr).Msg("Failed to close backup archive")
		}
	}()

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+b.Filename+`"`)
	http.ServeContent(w, r, b.Filename, b.CreatedAt, f)
}

// VerifyBackup recomputes an archive checksum.
func (h *Handler) VerifyBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupsAvailable(w, r) {
		return
	}
	b, err := h.backups.Verify(urlParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, b)
}

// DeleteBackup removes an archive and its record.
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupsAvailable(w, r) {
		return
	}
	id := urlParam(r, "id")
	if err := h.backups.DeleteBackup(id); err != nil {
		RespondError(w, r, err)
		return
	}
	h.auditBackup(r, audit.EventBackupDeleted, audit.OutcomeSuccess, "Backup deleted", id)
	WriteSuccess(w, r, map[string]string{"deleted": id})
}

func (h *Handler) auditBackup(r *http.Request, eventType audit.EventType, outcome audit.Outcome, description, id string) {
	username := ""
	if claims := auth.GetClaims(r.Context()); claims != nil {
		username = claims.Username
	}
	event := audit.NewRequestEvent(r, eventType, outcome, username, description)
	event.Target = &audit.Target{ID: id, Type: "backup"}
	h.audit.Log(event)
}
