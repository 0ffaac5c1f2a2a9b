// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package events carries booth domain events over an in-process Watermill
// pub/sub so the admin live feed can follow session activity.
//
// Publishing never blocks a booth operation: delivery to subscribers is
// asynchronous and an event published with no subscriber is dropped.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
)

// Topic is the single topic all booth events are published on.
const Topic = "booth.events"

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("events: bus is closed")

// Envelope is the serialized form of an event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	RequestID  string          `json:"request_id,omitempty"`
	Actor      string          `json:"actor,omitempty"` // staff username; empty for customer actions
	Data       json.RawMessage `json:"data,omitempty"`
}

// Bus is a Watermill GoChannel pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel
	now    func() time.Time
	closed atomic.Bool
}

// NewBus creates a bus whose subscribers buffer up to buffer messages.
func NewBus(buffer int64) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	logger := watermill.NewSlogLogger(logging.NewSlogLogger().With("component", "events"))
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, logger),
		now:    time.Now,
	}
}

// Publish serializes payload into an Envelope and publishes it.
func (b *Bus) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if b.closed.Load() {
		metrics.EventPublishErrors.Inc()
		return ErrClosed
	}
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.EventPublishErrors.Inc()
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: b.now().UTC(),
		RequestID:  logging.RequestIDFromContext(ctx),
		Actor:      logging.UsernameFromContext(ctx),
		Data:       data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		metrics.EventPublishErrors.Inc()
		return fmt.Errorf("failed to marshal %s envelope: %w", eventType, err)
	}

	msg := message.NewMessage(env.ID, body)
	msg.Metadata.Set("event_type", eventType)
	if env.RequestID != "" {
		msg.Metadata.Set("request_id", env.RequestID)
	}

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		metrics.EventPublishErrors.Inc()
		if b.closed.Load() {
			return ErrClosed
		}
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	metrics.EventsPublished.WithLabelValues(eventType).Inc()
	return nil
}

// Subscribe returns a channel of messages published after the call. The
// channel closes when ctx is done or the bus is closed. Each message must
// be acked.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close stops delivery and closes subscriber channels.
func (b *Bus) Close() error {
	b.closed.Store(true)
	return b.pubsub.Close()
}

// Decode parses a message published on the bus.
func Decode(msg *message.Message) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", msg.UUID, err)
	}
	return &env, nil
}
