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

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/models"
	"github.com/tomtom215/snapbooth/internal/validation"
)

// maxEmailImageBytes caps the attachment loaded for an email.
const maxEmailImageBytes = 32 << 20

// Composite renders the session's photos, in order, into the frame and
// stores the result as PNG. The session is marked COMPLETED.
func (s *Service) Composite(ctx context.Context, sessionID, frameID string) (*models.Composite, error) {
	if s.compositor == nil {
		return nil, errors.New("booth: compositor is not configured")
	}
	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	frame, err := s.GetFrame(ctx, frameID)
	if err != nil {
		return nil, err
	}
	photos, err := s.store.ListPhotos(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	if len(photos) == 0 {
		return nil, ErrNoPhotos
	}

	keys := make([]string, len(photos))
	for i := range photos {
		keys[i] = photos[i].StorageKey
	}

	data, err := s.compositor.Compose(ctx, keys, frame.StorageKey)
	if err != nil {
		if errors.Is(err, ErrUpstream) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, upstream("failed to render composite", err)
	}

	key := CompositePrefix + newID() + ".png"
	url, err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/png")
	if err != nil {
		return nil, upstream("failed to store composite", err)
	}

	composite := &models.Composite{
		URL:        url,
		StorageKey: key,
		SessionID:  sessionID,
		FrameID:    frameID,
		Photos:     min(len(photos), models.PhotoSlots),
		CreatedAt:  s.now().UTC(),
	}
	// A finished composite closes the session; later renders with another
	// frame are still allowed.
	if _, err := s.store.UpdateSessionStatus(ctx, sessionID, models.SessionCompleted); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("Failed to mark session completed")
	}
	logging.Ctx(ctx).Info().
		Str("session_id", sessionID).
		Str("frame_id", frameID).
		Str("key", key).
		Msg("Composite created")
	s.publish(ctx, EventCompositeCreated, composite)
	return composite, nil
}

// SendEmail mails a stored composite or screenshot to a customer.
func (s *Service) SendEmail(ctx context.Context, to, imageKey string) error {
	if s.mailer == nil {
		return errors.New("booth: mailer is not configured")
	}
	to = strings.TrimSpace(to)
	if err := validation.GetValidator().Var(to, "required,email"); err != nil {
		return validationf("a valid email address is required")
	}
	imageKey = strings.TrimPrefix(strings.TrimSpace(imageKey), "/")
	if !isMailableKey(imageKey) {
		return validationf("image must be a composite or screenshot")
	}

	rc, err := s.objects.Get(ctx, imageKey)
	if err != nil {
		return &Error{Kind: ErrNotFound, Message: "image not found", Err: err}
	}
	image, err := io.ReadAll(io.LimitReader(rc, maxEmailImageBytes))
	closeErr := rc.Close()
	if err != nil {
		return upstream("failed to read image", err)
	}
	if closeErr != nil {
		logging.Ctx(ctx).Debug().Err(closeErr).Str("key", imageKey).Msg("Failed to close image reader")
	}

	if err := s.mailer.Send(ctx, models.PhotoEmail{To: to, ImageKey: imageKey, Image: image}); err != nil {
		if errors.Is(err, ErrUpstream) {
			return err
		}
		return upstream("failed to send email", err)
	}

	logging.Ctx(ctx).Info().Str("to", logging.SanitizeEmail(to)).Str("key", imageKey).Msg("Photo email sent")
	s.publish(ctx, EventEmailSent, map[string]string{"image_key": imageKey})
	return nil
}

func isMailableKey(key string) bool {
	if strings.Contains(key, "..") {
		return false
	}
	return (strings.HasPrefix(key, CompositePrefix) || strings.HasPrefix(key, ScreenshotPrefix)) &&
		strings.HasSuffix(key, ".png")
}
