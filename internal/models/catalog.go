// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package models

import (
	"time"
)

// Frame overlays and composites share one canvas size (A6 at 630 dpi).
const (
	CanvasWidth  = 2635
	CanvasHeight = 3715

	// PhotoSlots is the number of photo placeholders on the canvas.
	PhotoSlots = 6
)

// Frame is a decorative overlay drawn on top of the composited photos.
type Frame struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	StorageKey  string    `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CreatedAt   time.Time `json:"created_at"`
}

// Composite is a finished frame-and-photos image.
type Composite struct {
	URL        string    `json:"url"`
	StorageKey string    `json:"storage_key"`
	SessionID  string    `json:"session_id,omitempty"`
	FrameID    string    `json:"frame_id"`
	Photos     int       `json:"photos"`
	CreatedAt  time.Time `json:"created_at"`
}

// PhotoEmail is one outgoing email carrying a finished image.
type PhotoEmail struct {
	To       string
	ImageKey string
	Image    []byte
}

// Screenshot is a browser capture saved as PNG.
type Screenshot struct {
	URL        string `json:"url"`
	StorageKey string `json:"storage_key"`
}

// Role names used by the admin area.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User is an admin-area account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Period selects the earnings window.
type Period string

// Earnings periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodMonth, PeriodYear, PeriodAll:
		return true
	}
	return false
}

// DailyCount is one bar of the trailing 30-day histogram.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// EarningsSummary is the earnings report for one period.
type EarningsSummary struct {
	Period        Period       `json:"period"`
	Since         *time.Time   `json:"since,omitempty"`
	TotalSessions int          `json:"total_sessions"`
	TotalEarnings int64        `json:"total_earnings"`
	Rate          int64        `json:"rate"`
	Currency      string       `json:"currency"`
	ChartData     []DailyCount `json:"chart_data"`
}
