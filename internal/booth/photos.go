// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/tomtom215/snapbooth/internal/database"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
	"github.com/tomtom215/snapbooth/internal/models"
)

// Object key prefixes.
const (
	PhotoPrefix      = "photos/"
	ScreenshotPrefix = "screenshots/"
	CompositePrefix  = "final-photos/"
	FramePrefix      = "frames/"
)

// maxOrderAttempts bounds retries when two uploads to the same session
// pick the same order.
const maxOrderAttempts = 3

// UploadPhoto stores a captured photo and appends it to the session with
// the next order number. The file is written first; if the session turns
// out not to exist or the row cannot be inserted, the file is removed again.
func (s *Service) UploadPhoto(ctx context.Context, sessionID, contentType string, r io.Reader) (*models.Photo, error) {
	if sessionID == "" {
		return nil, validationf("session id is required")
	}
	up, err := readImageUpload(r, contentType, s.cfg.MaxPhotoBytes)
	if err != nil {
		return nil, err
	}

	photo := &models.Photo{
		ID:          newID(),
		SessionID:   sessionID,
		ContentType: up.contentType,
		Size:        int64(len(up.data)),
		CreatedAt:   s.now().UTC(),
	}
	photo.StorageKey = path.Join(PhotoPrefix, sessionID, photo.ID+"."+up.ext)

	url, err := s.objects.Put(ctx, photo.StorageKey, bytes.NewReader(up.data), photo.Size, up.contentType)
	if err != nil {
		return nil, upstream("failed to store photo", err)
	}
	photo.URL = url

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		s.removeObject(ctx, photo.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("failed to look up session: %w", err)
		}
		return nil, ErrSessionNotFound
	}

	for attempt := 1; ; attempt++ {
		err = s.store.InsertPhoto(ctx, photo)
		if err == nil {
			break
		}
		if !errors.Is(err, database.ErrDuplicate) || attempt >= maxOrderAttempts {
			s.removeObject(ctx, photo.StorageKey)
			return nil, upstream("failed to save photo", err)
		}
	}

	metrics.RecordPhoto(photo.Size)
	logging.Ctx(ctx).Info().
		Str("session_id", sessionID).
		Str("photo_id", photo.ID).
		Int("order", photo.Order).
		Int64("size", photo.Size).
		Msg("Photo uploaded")
	s.publish(ctx, EventPhotoUploaded, photo)
	return photo, nil
}

// ListPhotos returns the photos of a session in capture order.
func (s *Service) ListPhotos(ctx context.Context, sessionID string) ([]models.Photo, error) {
	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	photos, err := s.store.ListPhotos(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, nil
}

// GetPhoto returns one photo by id.
func (s *Service) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	if id == "" {
		return nil, validationf("photo id is required")
	}
	photo, err := s.store.GetPhoto(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up photo: %w", err)
	}
	if photo == nil {
		return nil, ErrPhotoNotFound
	}
	return photo, nil
}

// DeletePhoto removes the photo row, then its file. The orders of the
// remaining photos are not renumbered.
func (s *Service) DeletePhoto(ctx context.Context, id string) error {
	photo, err := s.GetPhoto(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeletePhoto(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	if !deleted {
		return ErrPhotoNotFound
	}
	s.removeObject(ctx, photo.StorageKey)
	s.publish(ctx, EventPhotoDeleted, map[string]string{"photo_id": id, "session_id": photo.SessionID})
	return nil
}

// DeleteSessionPhotos removes every photo of a session and returns how many
// were deleted.
func (s *Service) DeleteSessionPhotos(ctx context.Context, sessionID string) (int, error) {
	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return 0, err
	}
	photos, err := s.store.DeleteSessionPhotos(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session photos: %w", err)
	}
	for _, p := range photos {
		s.removeObject(ctx, p.StorageKey)
	}

	logging.Ctx(ctx).Info().Str("session_id", sessionID).Int("count", len(photos)).Msg("Session photos deleted")
	s.publish(ctx, EventPhotosCleared, map[string]interface{}{"session_id": sessionID, "count": len(photos)})
	return len(photos), nil
}

// SaveScreenshot stores a browser capture as PNG. Any accepted image type
// is re-encoded.
func (s *Service) SaveScreenshot(ctx context.Context, contentType string, r io.Reader) (*models.Screenshot, error) {
	up, err := readImageUpload(r, contentType, s.cfg.MaxPhotoBytes)
	if err != nil {
		return nil, err
	}
	data := up.data
	if up.contentType != "image/png" {
		if data, err = toPNG(up.data); err != nil {
			return nil, err
		}
	}

	key := ScreenshotPrefix + newID() + ".png"
	url, err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/png")
	if err != nil {
		return nil, upstream("failed to store screenshot", err)
	}
	return &models.Screenshot{URL: url, StorageKey: key}, nil
}
