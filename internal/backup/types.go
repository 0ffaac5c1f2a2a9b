// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package backup

import (
	"context"
	"errors"
	"time"
)

// Type selects what goes into an archive.
type Type string

const (
	// TypeDatabase archives the DuckDB export only.
	TypeDatabase Type = "database"

	// TypeFull adds the local upload directory.
	TypeFull Type = "full"
)

// Valid reports whether t is a known backup type.
func (t Type) Valid() bool {
	return t == TypeDatabase || t == TypeFull
}

// Status is the state of a backup record.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"

	// StatusCorrupted marks an archive whose checksum no longer matches.
	StatusCorrupted Status = "corrupted"
)

// Trigger records what started a backup.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

var (
	// ErrNotFound is returned for an unknown backup id.
	ErrNotFound = errors.New("backup not found")

	// ErrDisabled is returned when backups are turned off.
	ErrDisabled = errors.New("backups are disabled")

	// ErrInvalidType is returned for a type other than database or full.
	ErrInvalidType = errors.New("backup type must be database or full")
)

// Database is the part of the booth database a backup needs.
type Database interface {
	// ExportTo writes a DuckDB export into dir.
	ExportTo(ctx context.Context, dir string) error
	// TableCounts returns the row count per table.
	TableCounts(ctx context.Context) (map[string]int64, error)
}

// Backup describes one archive.
type Backup struct {
	ID          string           `json:"id"`
	Type        Type             `json:"type"`
	Status      Status           `json:"status"`
	Trigger     Trigger          `json:"trigger"`
	Notes       string           `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	DurationMS  int64            `json:"duration_ms"`
	Filename    string           `json:"filename"`
	FileSize    int64            `json:"file_size"`
	Checksum    string           `json:"checksum,omitempty"`
	RecordCount map[string]int64 `json:"record_count,omitempty"`
	Files       []File           `json:"files,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// File is one entry written into an archive.
type File struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// ListOptions filters ListBackups. Zero values match everything.
type ListOptions struct {
	Type   Type
	Status Status
	Limit  int
	Offset int
}

// Stats summarises the stored backups.
type Stats struct {
	TotalCount     int            `json:"total_count"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	CountByStatus  map[Status]int `json:"count_by_status"`
	LastBackup     *Backup        `json:"last_backup,omitempty"`
	NextScheduled  *time.Time     `json:"next_scheduled,omitempty"`
}

// metadataStore is persisted as metadata.json.
type metadataStore struct {
	Backups       []*Backup  `json:"backups"`
	LastScheduled *time.Time `json:"last_scheduled,omitempty"`
	NextScheduled *time.Time `json:"next_scheduled,omitempty"`
}
