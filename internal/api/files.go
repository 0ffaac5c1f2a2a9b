// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/storage"
)

// ServeFile streams a stored object addressed by the /files/* wildcard.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key, err := storage.CleanKey(urlParam(r, "*"))
	if err != nil {
		NewResponseWriter(w, r).NotFound("file not found")
		return
	}

	rc, err := h.objects.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			NewResponseWriter(w, r).NotFound("file not found")
			return
		}
		RespondError(w, r, err)
		return
	}
	defer rc.Close() //nolint:errcheck // read-only stream

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already sent; the client sees a truncated body.
		logging.Ctx(r.Context()).Debug().Err(err).Str("key", key).Msg("File stream interrupted")
	}
}
