// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	// Authentication events
	EventLoginSucceeded EventType = "auth.login"
	EventLoginFailed    EventType = "auth.login_failed"
	EventLogout         EventType = "auth.logout"
	EventUserCreated    EventType = "user.created"

	// Booth events, named after the domain events they are recorded from
	EventCodeGenerated    EventType = "code.generated"
	EventSessionCreated   EventType = "session.created"
	EventSessionClaimed   EventType = "session.claimed"
	EventSessionResumed   EventType = "session.resumed"
	EventPhotoDeleted     EventType = "photo.deleted"
	EventPhotosCleared    EventType = "photos.cleared"
	EventCompositeCreated EventType = "composite.created"
	EventEmailSent        EventType = "email.sent"
	EventFrameChanged     EventType = "frame.changed"

	// Maintenance events
	EventBackupCreated EventType = "backup.created"
	EventBackupDeleted EventType = "backup.deleted"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Actor types.
const (
	ActorStaff    = "staff"
	ActorCustomer = "customer"
	ActorSystem   = "system"
)

// Event is one entry of the audit trail.
type Event struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        EventType       `json:"type"`
	Outcome     Outcome         `json:"outcome"`
	Actor       Actor           `json:"actor"`
	Target      *Target         `json:"target,omitempty"`
	SourceIP    string          `json:"source_ip,omitempty"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
}

// Actor is who performed an action.
type Actor struct {
	// Name is the staff username; empty for customers.
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// Target is the object of an action.
type Target struct {
	ID   string `json:"id"`
	Type string `json:"type"` // code, session, photo, frame, user, image, backup
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error

	// Query returns matching events, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// DeleteBefore removes events older than t and returns how many.
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)
}

// QueryFilter narrows an audit query. Zero fields match everything.
type QueryFilter struct {
	Types     []EventType
	ActorName string
	TargetID  string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// MaxQueryLimit caps a single page of audit events.
const MaxQueryLimit = 500

// DefaultQueryFilter returns the newest 100 events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}

func (f QueryFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return 100
	case f.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return f.Limit
	}
}
