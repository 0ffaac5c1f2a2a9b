// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package storage keeps uploaded photos, frames and generated images.
//
// Two backends implement the same Backend interface: the local filesystem
// (default, for a single booth machine) and an S3-compatible bucket through
// minio-go. Objects are addressed by slash-separated keys such as
// "photos/<session>/<id>.jpg" and are published to clients under
// <public_url>/files/<key>, which the HTTP layer serves from the backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/tomtom215/snapbooth/internal/config"
)

var (
	// ErrNotFound is returned when no object exists under a key.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("invalid object key")
)

// FilesPath is the URL path prefix objects are served under.
const FilesPath = "/files/"

// Backend stores objects by key.
type Backend interface {
	// Put stores r under key and returns the object's public URL.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Get opens the object. Missing objects return ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// Name identifies the backend in logs and health output.
	Name() string
}

// New builds the backend selected by cfg.Backend. publicURL prefixes the
// returned object URLs; empty yields root-relative URLs.
func New(ctx context.Context, cfg *config.StorageConfig, publicURL string) (Backend, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.LocalDir, publicURL)
	case "minio":
		return NewMinIO(ctx, cfg, publicURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// CleanKey validates key and returns its canonical form.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", ErrInvalidKey
		}
	}
	return path.Clean(key), nil
}

func objectURL(publicURL, key string) string {
	return strings.TrimSuffix(publicURL, "/") + FilesPath + key
}
