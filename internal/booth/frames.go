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
	"strings"

	"github.com/tomtom215/snapbooth/internal/database"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/models"
)

// FrameUpload is a new or replacement frame image.
type FrameUpload struct {
	Name        string
	Filename    string
	ContentType string
	Body        io.Reader
}

// ListFrames returns the catalogue, oldest first.
func (s *Service) ListFrames(ctx context.Context) ([]models.Frame, error) {
	frames, err := s.store.ListFrames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	return frames, nil
}

// GetFrame returns one frame by id.
func (s *Service) GetFrame(ctx context.Context, id string) (*models.Frame, error) {
	if id == "" {
		return nil, validationf("frame id is required")
	}
	frame, err := s.store.GetFrame(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up frame: %w", err)
	}
	if frame == nil {
		return nil, ErrFrameNotFound
	}
	return frame, nil
}

// UploadFrame adds a frame. The image must be exactly canvas-sized.
func (s *Service) UploadFrame(ctx context.Context, in FrameUpload) (*models.Frame, error) {
	up, width, height, err := s.readFrame(in)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	now := s.now().UTC()
	frame := &models.Frame{
		Filename:    in.Filename,
		ContentType: up.contentType,
		Size:        int64(len(up.data)),
		Width:       width,
		Height:      height,
		CreatedAt:   now,
	}

	for millis := now.UnixMilli(); ; millis++ {
		frame.ID = fmt.Sprintf("frame-%d", millis)
		frame.Name = name
		if name == "" {
			frame.Name = frame.ID
		}
		if err := s.storeFrameObject(ctx, frame, up); err != nil {
			return nil, err
		}
		err := s.store.InsertFrame(ctx, frame)
		if err == nil {
			break
		}
		s.removeObject(ctx, frame.StorageKey)
		if !errors.Is(err, database.ErrDuplicate) || millis-now.UnixMilli() >= 10 {
			return nil, fmt.Errorf("failed to save frame: %w", err)
		}
	}

	logging.Ctx(ctx).Info().Str("frame_id", frame.ID).Str("name", frame.Name).Msg("Frame uploaded")
	s.publish(ctx, EventFrameChanged, map[string]string{"frame_id": frame.ID, "action": "created"})
	return frame, nil
}

// ReplaceFrame renames a frame and, when in.Body is set, swaps its image.
// The new image is stored before the old one is removed.
func (s *Service) ReplaceFrame(ctx context.Context, id string, in FrameUpload) (*models.Frame, error) {
	frame, err := s.GetFrame(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *frame
	if name := strings.TrimSpace(in.Name); name != "" {
		updated.Name = name
	}

	oldKey := ""
	if in.Body != nil {
		up, width, height, err := s.readFrame(in)
		if err != nil {
			return nil, err
		}
		updated.Filename = in.Filename
		updated.ContentType = up.contentType
		updated.Size = int64(len(up.data))
		updated.Width, updated.Height = width, height
		if err := s.storeFrameObject(ctx, &updated, up); err != nil {
			return nil, err
		}
		oldKey = frame.StorageKey
	}

	ok, err := s.store.UpdateFrame(ctx, &updated)
	if err != nil || !ok {
		if in.Body != nil {
			s.removeObject(ctx, updated.StorageKey)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update frame: %w", err)
		}
		return nil, ErrFrameNotFound
	}
	if oldKey != "" && oldKey != updated.StorageKey {
		s.removeObject(ctx, oldKey)
	}

	logging.Ctx(ctx).Info().Str("frame_id", id).Msg("Frame updated")
	s.publish(ctx, EventFrameChanged, map[string]string{"frame_id": id, "action": "updated"})
	return &updated, nil
}

// DeleteFrame removes a frame row and its image.
func (s *Service) DeleteFrame(ctx context.Context, id string) error {
	frame, err := s.GetFrame(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteFrame(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete frame: %w", err)
	}
	if !deleted {
		return ErrFrameNotFound
	}
	s.removeObject(ctx, frame.StorageKey)

	logging.Ctx(ctx).Info().Str("frame_id", id).Msg("Frame deleted")
	s.publish(ctx, EventFrameChanged, map[string]string{"frame_id": id, "action": "deleted"})
	return nil
}

func (s *Service) readFrame(in FrameUpload) (*upload, int, int, error) {
	if in.Body == nil {
		return nil, 0, 0, validationf("frame file is required")
	}
	up, err := readImageUpload(in.Body, in.ContentType, s.cfg.MaxFrameBytes)
	if err != nil {
		return nil, 0, 0, err
	}
	width, height, err := imageSize(up.data)
	if err != nil {
		return nil, 0, 0, err
	}
	if width != models.CanvasWidth || height != models.CanvasHeight {
		return nil, 0, 0, validationf("frame must be exactly %dx%d pixels, uploaded image is %dx%d",
			models.CanvasWidth, models.CanvasHeight, width, height)
	}
	return up, width, height, nil
}

// storeFrameObject writes the image under a fresh key and sets the frame's
// key and URL.
func (s *Service) storeFrameObject(ctx context.Context, frame *models.Frame, up *upload) error {
	key := fmt.Sprintf("%s%s-%s.%s", FramePrefix, frame.ID, newID()[:8], up.ext)
	url, err := s.objects.Put(ctx, key, bytes.NewReader(up.data), int64(len(up.data)), up.contentType)
	if err != nil {
		return upstream("failed to store frame", err)
	}
	frame.StorageKey = key
	frame.URL = url
	return nil
}
