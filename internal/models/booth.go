// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package models provides data structures for the Snapbooth application.
// This file contains the session code, session and photo records.
package models

import (
	"time"
)

// CodeStatus is the lifecycle state of a session code.
type CodeStatus string

// Session code states. EXPIRED is never stored; it is reported for
// ACTIVE codes whose expiry has passed.
const (
	CodeActive  CodeStatus = "ACTIVE"
	CodeUsed    CodeStatus = "USED"
	CodeExpired CodeStatus = "EXPIRED"
)

// SessionCode is a claim ticket exchanged for a photo session.
type SessionCode struct {
	Code      string     `json:"code"`
	Status    CodeStatus `json:"status"`
	ExpiredAt *time.Time `json:"expired_at,omitempty"` // nil means the code never expires
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// IsExpired reports whether the code is past its expiry at now.
func (c *SessionCode) IsExpired(now time.Time) bool {
	return c.ExpiredAt != nil && now.After(*c.ExpiredAt)
}

// EffectiveStatus returns the status clients should see at now.
// A stored ACTIVE code past its expiry reads as EXPIRED.
func (c *SessionCode) EffectiveStatus(now time.Time) CodeStatus {
	if c.Status == CodeActive && c.IsExpired(now) {
		return CodeExpired
	}
	return c.Status
}

// SessionStatus is the state of a photo session.
type SessionStatus string

// Session states.
const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
)

// Session is one customer's visit to the booth, bound to exactly one code.
type Session struct {
	ID             string        `json:"id"`
	Code           string        `json:"code"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UsedAt         *time.Time    `json:"used_at,omitempty"`
	TimerExpiresAt *time.Time    `json:"timer_expires_at,omitempty"` // nil until the code is claimed
	PhotoCount     int           `json:"photo_count"`
}

// SessionDetail is a session with its code record and ordered photos.
type SessionDetail struct {
	Session
	CodeInfo *SessionCode `json:"code_info,omitempty"`
	Photos   []Photo      `json:"photos"`
}

// ClaimResult is returned when a code is exchanged for a session.
type ClaimResult struct {
	Session *Session `json:"session"`
	Resumed bool     `json:"resumed"`
}

// VerifyResult is returned by a successful code verification.
type VerifyResult struct {
	Valid     bool       `json:"valid"`
	Code      string     `json:"code"`
	ExpiredAt *time.Time `json:"expired_at,omitempty"`
}

// SessionTimer is the server-held capture countdown for a session.
type SessionTimer struct {
	SessionID        string     `json:"session_id"`
	Started          bool       `json:"started"`
	DurationSeconds  int        `json:"duration_seconds"`
	RemainingSeconds int        `json:"remaining_seconds"`
	Expired          bool       `json:"expired"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// Photo is one captured image belonging to a session.
type Photo struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Order       int       `json:"order"`
	URL         string    `json:"url"`
	StorageKey  string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionPage is one page of the admin session listing.
type SessionPage struct {
	Sessions   []Session `json:"sessions"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	Total      int       `json:"total"`
	TotalPages int       `json:"total_pages"`
}
