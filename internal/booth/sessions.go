// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
	"github.com/tomtom215/snapbooth/internal/models"
)

// CreateSession is the operator flow: a new code and a session bound to it
// are created together. The session timer starts when the customer claims
// the code.
func (s *Service) CreateSession(ctx context.Context) (*models.SessionDetail, error) {
	c, err := s.insertFreshCode(ctx, s.cfg.CodeTTL)
	if err != nil {
		return nil, err
	}
	metrics.CodesGenerated.WithLabelValues("admin_session").Inc()

	session := &models.Session{
		ID:        newID(),
		Code:      c.Code,
		Status:    models.SessionActive,
		CreatedAt: c.CreatedAt,
	}
	if err := s.store.InsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logging.Ctx(ctx).Info().Str("code", c.Code).Str("session_id", session.ID).Msg("Session created by operator")
	s.publish(ctx, EventSessionCreated, session)
	return &models.SessionDetail{Session: *session, CodeInfo: c, Photos: []models.Photo{}}, nil
}

// ListSessions returns one page of sessions, newest first. Page numbers
// start at 1; out-of-range values are clamped.
func (s *Service) ListSessions(ctx context.Context, page, pageSize int) (*models.SessionPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.PageSize
	}
	if pageSize > 100 {
		pageSize = 100
	}

	sessions, total, err := s.store.ListSessions(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return &models.SessionPage{
		Sessions:   sessions,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// GetSession returns a session with its code record and ordered photos.
func (s *Service) GetSession(ctx context.Context, id string) (*models.SessionDetail, error) {
	session, err := s.requireSession(ctx, id)
	if err != nil {
		return nil, err
	}
	code, err := s.store.GetCode(ctx, session.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session code: %w", err)
	}
	if code != nil {
		code.Status = code.EffectiveStatus(s.now())
	}
	photos, err := s.store.ListPhotos(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return &models.SessionDetail{Session: *session, CodeInfo: code, Photos: photos}, nil
}

func (s *Service) requireSession(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, validationf("session id is required")
	}
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Timer reports the capture countdown of a session.
func (s *Service) Timer(ctx context.Context, sessionID string) (*models.SessionTimer, error) {
	session, err := s.requireSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sessionTimer(session, s.cfg.SessionDuration, s.now()), nil
}

func sessionTimer(session *models.Session, duration time.Duration, now time.Time) *models.SessionTimer {
	t := &models.SessionTimer{
		SessionID:       session.ID,
		DurationSeconds: int(duration / time.Second),
	}
	if session.TimerExpiresAt == nil {
		t.RemainingSeconds = t.DurationSeconds
		return t
	}

	t.Started = true
	t.ExpiresAt = session.TimerExpiresAt
	remaining := session.TimerExpiresAt.Sub(now)
	if remaining <= 0 {
		t.Expired = true
		return t
	}
	// Rounded up: 0 is only reported once the timer has expired.
	t.RemainingSeconds = int((remaining + time.Second - 1) / time.Second)
	return t
}
