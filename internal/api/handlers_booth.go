// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/snapbooth/internal/storage"
)

type codeRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

type compositeRequest struct {
	SessionID string `json:"session_id" validate:"required,max=64"`
	FrameID   string `json:"frame_id" validate:"required,max=64"`
}

// emailRequest accepts either the storage key or the URL path returned by
// the composite and screenshot endpoints.
type emailRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	ImageKey  string `json:"image_key" validate:"required_without=ImagePath,max=256"`
	ImagePath string `json:"image_path" validate:"max=512"`
}

func (req *emailRequest) key() string {
	if req.ImageKey != "" {
		return req.ImageKey
	}
	if i := strings.Index(req.ImagePath, storage.FilesPath); i >= 0 {
		return req.ImagePath[i+len(storage.FilesPath):]
	}
	return req.ImagePath
}

// GenerateCode issues a fresh session code.
func (h *Handler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.booth.GenerateCode(r.Context())
	if err != nil {
		RespondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(code)
}

// VerifyCode checks a code without claiming it.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.booth.Verify(r.Context(), req.Code)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, result)
}

// StartSession claims a code, or resumes the session already bound to it.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.booth.Claim(r.Context(), req.Code)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	if result.Resumed {
		WriteSuccess(w, r, result)
		return
	}
	NewResponseWriter(w, r).Created(result)
}

// SessionTimer reports the server-held countdown of a session.
func (h *Handler) SessionTimer(w http.ResponseWriter, r *http.Request) {
	timer, err := h.booth.Timer(r.Context(), urlParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, timer)
}

// ListPhotos returns a session's photos in capture order.
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.booth.ListPhotos(r.Context(), urlParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, photos)
}

// UploadPhoto appends a multipart "file" to a session.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	file, header, ok := formFile(w, r, h.booth.Config().MaxPhotoBytes, "file")
	if !ok {
		return
	}
	defer closeUpload(r, file)

	photo, err := h.booth.UploadPhoto(r.Context(), urlParam(r, "id"), header.Header.Get("Content-Type"), file)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(photo)
}

// DeleteSessionPhotos removes every photo of a session.
func (h *Handler) DeleteSessionPhotos(w http.ResponseWriter, r *http.Request) {
	n, err := h.booth.DeleteSessionPhotos(r.Context(), urlParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]int{"deleted": n})
}

// GetPhoto returns one photo.
func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := h.booth.GetPhoto(r.Context(), urlParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, photo)
}

// DeletePhoto removes one photo. Orders of the remaining photos are kept.
func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.booth.DeletePhoto(r.Context(), id); err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]string{"deleted": id})
}

// SaveScreenshot stores a browser capture sent as multipart "image" or "file".
func (h *Handler) SaveScreenshot(w http.ResponseWriter, r *http.Request) {
	file, header, ok := formFile(w, r, h.booth.Config().MaxPhotoBytes, "image", "file")
	if !ok {
		return
	}
	defer closeUpload(r, file)

	shot, err := h.booth.SaveScreenshot(r.Context(), header.Header.Get("Content-Type"), file)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(shot)
}

// CreateComposite renders a session's photos into a frame.
func (h *Handler) CreateComposite(w http.ResponseWriter, r *http.Request) {
	var req compositeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	composite, err := h.booth.Composite(r.Context(), req.SessionID, req.FrameID)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(composite)
}

// SendEmail mails a composite or screenshot to the customer.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.booth.SendEmail(r.Context(), req.Email, req.key()); err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]bool{"sent": true})
}
