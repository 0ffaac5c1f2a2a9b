// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"net/http"

	"github.com/tomtom215/snapbooth/internal/booth"
)

// ListFrames returns the frame catalogue.
func (h *Handler) ListFrames(w http.ResponseWriter, r *http.Request) {
	frames, err := h.booth.ListFrames(r.Context())
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, frames)
}

// GetFrame returns one frame.
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := h.booth.GetFrame(r.Context(), urlParam(r, "id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, frame)
}

func (h *Handler) frameUpload(w http.ResponseWriter, r *http.Request) (*booth.FrameUpload, func(), bool) {
	file, header, ok := formFile(w, r, h.booth.Config().MaxFrameBytes, "file", "frame")
	if !ok {
		return nil, nil, false
	}
	in := &booth.FrameUpload{
		Name:        r.FormValue("name"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	return in, func() { closeUpload(r, file) }, true
}

// UploadFrame adds a frame from multipart fields "file" and "name".
func (h *Handler) UploadFrame(w http.ResponseWriter, r *http.Request) {
	in, done, ok := h.frameUpload(w, r)
	if !ok {
		return
	}
	defer done()

	frame, err := h.booth.UploadFrame(r.Context(), *in)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(frame)
}

// ReplaceFrame swaps the image of an existing frame.
func (h *Handler) ReplaceFrame(w http.ResponseWriter, r *http.Request) {
	in, done, ok := h.frameUpload(w, r)
	if !ok {
		return
	}
	defer done()

	frame, err := h.booth.ReplaceFrame(r.Context(), urlParam(r, "id"), *in)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, frame)
}

// DeleteFrame removes a frame and its image.
func (h *Handler) DeleteFrame(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.booth.DeleteFrame(r.Context(), id); err != nil {
		RespondError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]string{"deleted": id})
}
