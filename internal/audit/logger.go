// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package audit

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
)

// writeTimeout bounds a single store write.
const writeTimeout = 5 * time.Second

// Logger buffers audit events and writes them to a Store. It runs as a
// supervised service; events logged before Serve starts wait in the buffer.
// A nil *Logger discards everything.
type Logger struct {
	cfg    config.AuditConfig
	store  Store
	events chan *Event
	now    func() time.Time
}

// NewLogger creates a logger writing to store.
func NewLogger(store Store, cfg config.AuditConfig) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 24 * time.Hour
	}
	return &Logger{
		cfg:    cfg,
		store:  store,
		events: make(chan *Event, cfg.BufferSize),
		now:    time.Now,
	}
}

// Store returns the backing store.
func (l *Logger) Store() Store {
	if l == nil {
		return nil
	}
	return l.store
}

// Log queues event. ID and Timestamp are filled in when empty. Never blocks.
func (l *Logger) Log(event *Event) {
	if l == nil || event == nil || !l.cfg.Enabled {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}

	select {
	case l.events <- event:
	default:
		metrics.AuditEvents.WithLabelValues("dropped").Inc()
		logging.Warn().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Audit event buffer full, dropping event")
	}
}

// Serve implements suture.Service. It drains queued events on shutdown.
func (l *Logger) Serve(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	l.prune(ctx)
	for {
		select {
		case <-ctx.Done():
			l.drain()
			return ctx.Err()
		case event := <-l.events:
			l.write(ctx, event)
		case <-ticker.C:
			l.prune(ctx)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (l *Logger) String() string {
	return "audit-logger"
}

func (l *Logger) drain() {
	for {
		select {
		case event := <-l.events:
			l.write(context.Background(), event)
		default:
			return
		}
	}
}

func (l *Logger) write(ctx context.Context, event *Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		metrics.AuditEvents.WithLabelValues("failed").Inc()
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
		return
	}
	metrics.AuditEvents.WithLabelValues("saved").Inc()
}

// prune removes events older than the retention window.
func (l *Logger) prune(ctx context.Context) {
	if l.cfg.RetentionDays <= 0 {
		return
	}
	cutoff := l.now().UTC().AddDate(0, 0, -l.cfg.RetentionDays)
	deleted, err := l.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit retention cleanup failed")
		return
	}
	if deleted > 0 {
		metrics.AuditEventsPruned.Add(float64(deleted))
		logging.Info().Int64("deleted", deleted).Time("older_than", cutoff).Msg("Deleted old audit events")
	}
}

// NewRequestEvent builds an event attributed to a staff member acting
// through r.
func NewRequestEvent(r *http.Request, eventType EventType, outcome Outcome, username, description string) *Event {
	return &Event{
		Type:        eventType,
		Outcome:     outcome,
		Actor:       Actor{Name: username, Type: ActorStaff},
		SourceIP:    clientIP(r.RemoteAddr),
		Description: description,
		RequestID:   logging.RequestIDFromContext(r.Context()),
	}
}

func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
