// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the service wraps exactly one of
// these so the transport layer can map it with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrExpired    = errors.New("expired")
	ErrUpstream   = errors.New("upstream failure")
)

// Specific failures. Each one carries its kind.
var (
	ErrCodeNotFound    = &Error{Kind: ErrNotFound, Message: "session code not found"}
	ErrCodeAlreadyUsed = &Error{Kind: ErrConflict, Message: "session code has already been used"}
	ErrCodeExpired     = &Error{Kind: ErrExpired, Message: "session code has expired"}
	ErrSessionNotFound = &Error{Kind: ErrNotFound, Message: "session not found"}
	ErrPhotoNotFound   = &Error{Kind: ErrNotFound, Message: "photo not found"}
	ErrFrameNotFound   = &Error{Kind: ErrNotFound, Message: "frame not found"}
	ErrNoPhotos        = &Error{Kind: ErrValidation, Message: "session has no photos"}
)

// Error is a classified service error with a client-safe message.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Is matches the shared sentinels above by identity of kind and message,
// so a wrapped ErrCodeExpired still satisfies errors.Is(err, ErrCodeExpired).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func validationf(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func upstream(message string, err error) error {
	return &Error{Kind: ErrUpstream, Message: message, Err: err}
}

// KindOf returns the kind sentinel err wraps, or nil for unclassified errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrExpired, ErrUpstream} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Message returns the client-safe message of a classified error.
// Unclassified errors yield an empty string.
func Message(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Message
	}
	return ""
}
