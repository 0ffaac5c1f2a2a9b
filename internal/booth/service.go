// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package booth implements the photobooth domain: session codes and their
// claim lifecycle, sessions with their server-held capture timer, ordered
// photo uploads, the frame catalogue, composites, email delivery and the
// earnings report.
//
// The service talks to its collaborators through the small interfaces in
// this file. The database, object storage, compositor, mailer and event bus
// packages provide the production implementations; tests substitute fakes.
package booth

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/models"
)

// Store is the persistence the service needs.
type Store interface {
	CodeChecker
	InsertCode(ctx context.Context, c *models.SessionCode) error
	GetCode(ctx context.Context, code string) (*models.SessionCode, error)
	ClaimCode(ctx context.Context, code string, now time.Time) (bool, error)
	ClaimCodeWithSession(ctx context.Context, s *models.Session, now time.Time) (bool, error)

	InsertSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]models.Session, int, error)
	StartSessionTimer(ctx context.Context, id string, usedAt, expiresAt time.Time) (bool, error)
	UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) (bool, error)

	InsertPhoto(ctx context.Context, p *models.Photo) error
	GetPhoto(ctx context.Context, id string) (*models.Photo, error)
	ListPhotos(ctx context.Context, sessionID string) ([]models.Photo, error)
	DeletePhoto(ctx context.Context, id string) (bool, error)
	DeleteSessionPhotos(ctx context.Context, sessionID string) ([]models.Photo, error)

	InsertFrame(ctx context.Context, f *models.Frame) error
	GetFrame(ctx context.Context, id string) (*models.Frame, error)
	ListFrames(ctx context.Context) ([]models.Frame, error)
	UpdateFrame(ctx context.Context, f *models.Frame) (bool, error)
	DeleteFrame(ctx context.Context, id string) (bool, error)

	CountSessionsSince(ctx context.Context, since *time.Time) (int, error)
	SessionCountsByMinute(ctx context.Context, from time.Time) (map[time.Time]int, error)
}

// ObjectStore holds uploaded and generated files.
type ObjectStore interface {
	// Put stores the object and returns its public URL.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Compositor renders photos into a frame.
type Compositor interface {
	Compose(ctx context.Context, photoKeys []string, frameKey string) ([]byte, error)
}

// Mailer delivers a finished image to a customer.
type Mailer interface {
	Send(ctx context.Context, msg models.PhotoEmail) error
}

// Publisher receives domain events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// Domain event types.
const (
	EventCodeGenerated    = "code.generated"
	EventSessionCreated   = "session.created"
	EventSessionClaimed   = "session.claimed"
	EventSessionResumed   = "session.resumed"
	EventPhotoUploaded    = "photo.uploaded"
	EventPhotoDeleted     = "photo.deleted"
	EventPhotosCleared    = "photos.cleared"
	EventCompositeCreated = "composite.created"
	EventEmailSent        = "email.sent"
	EventFrameChanged     = "frame.changed"
)

// Deps are the collaborators of a Service. Events, Now and Location are optional.
type Deps struct {
	Store      Store
	Objects    ObjectStore
	Compositor Compositor
	Mailer     Mailer
	Events     Publisher
	Now        func() time.Time
	Location   *time.Location
}

// Service implements the booth operations.
type Service struct {
	cfg        config.BoothConfig
	store      Store
	objects    ObjectStore
	compositor Compositor
	mailer     Mailer
	events     Publisher
	generator  *Generator
	now        func() time.Time
	loc        *time.Location
}

// NewService wires a Service from its configuration and collaborators.
func NewService(cfg config.BoothConfig, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("booth: store is required")
	}
	if deps.Objects == nil {
		return nil, errors.New("booth: object store is required")
	}
	s := &Service{
		cfg:        cfg,
		store:      deps.Store,
		objects:    deps.Objects,
		compositor: deps.Compositor,
		mailer:     deps.Mailer,
		events:     deps.Events,
		generator:  NewGenerator(cfg.CodeLength, deps.Store),
		now:        deps.Now,
		loc:        deps.Location,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s, nil
}

// Config returns the booth configuration the service was built with.
func (s *Service) Config() config.BoothConfig {
	return s.cfg
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

// removeObject deletes a stored object as a compensating action. Failures
// are logged and not returned.
func (s *Service) removeObject(ctx context.Context, key string) {
	if err := s.objects.Delete(context.WithoutCancel(ctx), key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Failed to delete stored object")
	}
}

func newID() string {
	return uuid.New().String()
}
