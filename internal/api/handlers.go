// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/snapbooth/internal/audit"
	"github.com/tomtom215/snapbooth/internal/auth"
	"github.com/tomtom215/snapbooth/internal/backup"
	"github.com/tomtom215/snapbooth/internal/booth"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/validation"
)

// maxJSONBody bounds JSON request bodies; uploads use multipart limits.
const maxJSONBody = 64 * 1024

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and other fields.
const multipartOverhead = 1 << 20

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ObjectReader opens stored objects for /files.
type ObjectReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Name() string
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	GetClientCount() int
}

// Handler holds the collaborators of every route.
type Handler struct {
	booth        *booth.Service
	auth         *auth.Service
	db           Pinger
	objects      ObjectReader
	feed         ClientCounter
	audit        *audit.Logger
	backups      *backup.Manager
	authLog      *logging.AuthLogger
	cookieSecure bool
	startTime    time.Time
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		NewResponseWriter(w, r).BadRequest("request body must be valid JSON")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		RespondError(w, r, verr)
		return false
	}
	return true
}

// formFile reads the first present field of names from a multipart body
// limited to maxBytes plus form overhead.
func formFile(w http.ResponseWriter, r *http.Request, maxBytes int64, names ...string) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			NewResponseWriter(w, r).ValidationError("upload exceeds the maximum allowed size", nil)
			return nil, nil, false
		}
		NewResponseWriter(w, r).BadRequest("request must be multipart/form-data")
		return nil, nil, false
	}
	for _, name := range names {
		file, header, err := r.FormFile(name)
		if err == nil {
			return file, header, true
		}
	}
	NewResponseWriter(w, r).ValidationError("a file field named "+names[0]+" is required", nil)
	return nil, nil, false
}

func closeUpload(r *http.Request, f multipart.File) {
	if err := f.Close(); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to close upload")
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup
	}
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
