// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

/*
database_schema.go - Database Schema

Tables:
  - session_codes: claim tickets; status is ACTIVE or USED, expiry is checked at read time
  - sessions: at most one row per code (code is UNIQUE), with the server-held capture timer
  - photos: ordered captures per session; (session_id, photo_order) is UNIQUE
  - frames: overlay catalogue
  - users: admin-area accounts

There are no foreign keys. Photos are removed with an explicit bulk delete
and code rows outlive their sessions as a usage record.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS session_codes (
		code VARCHAR PRIMARY KEY,
		status VARCHAR NOT NULL DEFAULT 'ACTIVE',
		expired_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		used_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id VARCHAR PRIMARY KEY,
		code VARCHAR NOT NULL UNIQUE,
		status VARCHAR NOT NULL DEFAULT 'ACTIVE',
		created_at TIMESTAMP NOT NULL,
		used_at TIMESTAMP,
		timer_expires_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS photos (
		id VARCHAR PRIMARY KEY,
		session_id VARCHAR NOT NULL,
		photo_order INTEGER NOT NULL,
		url VARCHAR NOT NULL,
		storage_key VARCHAR NOT NULL,
		content_type VARCHAR NOT NULL,
		size BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (session_id, photo_order)
	)`,
	`CREATE TABLE IF NOT EXISTS frames (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		url VARCHAR NOT NULL,
		storage_key VARCHAR NOT NULL,
		filename VARCHAR NOT NULL,
		content_type VARCHAR NOT NULL,
		size BIGINT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR PRIMARY KEY,
		username VARCHAR NOT NULL UNIQUE,
		password_hash VARCHAR NOT NULL,
		role VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

var indexCreationQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_photos_session ON photos(session_id)`,
}

// createTables creates the database tables and indexes
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, query := range indexCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
