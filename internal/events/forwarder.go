// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package events

import (
	"context"
	"errors"

	"github.com/tomtom215/snapbooth/internal/logging"
)

// Broadcaster fans a typed message out to live clients.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Forwarder relays bus events to a Broadcaster. It runs as a supervised
// service; events published while it is restarting are not replayed.
type Forwarder struct {
	bus  *Bus
	sink Broadcaster
}

// NewForwarder creates a forwarder from bus to sink.
func NewForwarder(bus *Bus, sink Broadcaster) *Forwarder {
	return &Forwarder{bus: bus, sink: sink}
}

// Serve implements suture.Service.
func (f *Forwarder) Serve(ctx context.Context) error {
	messages, err := f.bus.Subscribe(ctx)
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
				return errors.New("event subscription closed")
			}
			env, err := Decode(msg)
			if err != nil {
				logging.Warn().Err(err).Msg("Dropping undecodable event")
				msg.Ack()
				continue
			}
			f.sink.BroadcastJSON(env.Type, env)
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (f *Forwarder) String() string {
	return "event-forwarder"
}
