// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/snapbooth/internal/events"
	"github.com/tomtom215/snapbooth/internal/logging"
)

// recorded maps the booth events kept in the trail to their target type and
// description. Photo uploads are too frequent to be worth auditing.
var recorded = map[EventType]struct {
	targetType  string
	targetField string
	description string
}{
	EventCodeGenerated:    {"code", "code", "Session code generated"},
	EventSessionCreated:   {"session", "id", "Session created from the admin area"},
	EventSessionClaimed:   {"session", "id", "Session code claimed at the booth"},
	EventSessionResumed:   {"session", "id", "Session resumed with its code"},
	EventPhotoDeleted:     {"photo", "photo_id", "Photo deleted"},
	EventPhotosCleared:    {"session", "session_id", "Session photos cleared"},
	EventCompositeCreated: {"image", "storage_key", "Composite rendered"},
	EventEmailSent:        {"image", "image_key", "Photo emailed to a customer"},
	EventFrameChanged:     {"frame", "frame_id", "Frame catalogue changed"},
}

// Recorder turns domain events from the bus into audit events. It runs as
// a supervised service.
type Recorder struct {
	bus    *events.Bus
	logger *Logger
}

// NewRecorder creates a recorder from bus to logger.
func NewRecorder(bus *events.Bus, logger *Logger) *Recorder {
	return &Recorder{bus: bus, logger: logger}
}

// Serve implements suture.Service.
func (r *Recorder) Serve(ctx context.Context) error {
	messages, err := r.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("audit subscription closed")
			}
			env, err := events.Decode(msg)
			if err != nil {
				logging.Warn().Err(err).Msg("Dropping undecodable event")
				msg.Ack()
				continue
			}
			if event := FromEnvelope(env); event != nil {
				r.logger.Log(event)
			}
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (r *Recorder) String() string {
	return "audit-recorder"
}

// FromEnvelope converts a domain event into an audit event, or returns nil
// for event types that are not audited.
func FromEnvelope(env *events.Envelope) *Event {
	eventType := EventType(env.Type)
	spec, ok := recorded[eventType]
	if !ok {
		return nil
	}

	actor := Actor{Name: env.Actor, Type: ActorStaff}
	if env.Actor == "" {
		actor.Type = ActorCustomer
	}

	event := &Event{
		ID:          env.ID,
		Timestamp:   env.OccurredAt,
		Type:        eventType,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Description: spec.description,
		Metadata:    env.Data,
		RequestID:   env.RequestID,
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(env.Data, &fields); err == nil {
		if id, ok := fields[spec.targetField]; ok {
			event.Target = &Target{ID: fmt.Sprint(id), Type: spec.targetType}
		}
		if action, ok := fields["action"].(string); ok && eventType == EventFrameChanged {
			event.Description = "Frame " + action
		}
	}
	return event
}
