// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/snapbooth/internal/logging"
)

// DuckDBStore implements Store on the booth DuckDB database.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a store on db. Call CreateTable before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

var auditSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_events (
		id VARCHAR PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		type VARCHAR NOT NULL,
		outcome VARCHAR NOT NULL,
		actor_name VARCHAR,
		actor_type VARCHAR NOT NULL,
		target_id VARCHAR,
		target_type VARCHAR,
		source_ip VARCHAR,
		description VARCHAR NOT NULL,
		metadata VARCHAR,
		request_id VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_events(actor_name)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_events(target_id)`,
}

// CreateTable creates the audit_events table and its indexes.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	for _, stmt := range auditSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}
	logging.Info().Msg("Audit events table created/verified")
	return nil
}

// Save implements Store.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	var targetID, targetType *string
	if event.Target != nil {
		targetID, targetType = &event.Target.ID, &event.Target.Type
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, timestamp, type, outcome, actor_name, actor_type,
			target_id, target_type, source_ip, description, metadata, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp.UTC(),
		string(event.Type),
		string(event.Outcome),
		nullString(event.Actor.Name),
		event.Actor.Type,
		targetID,
		targetType,
		nullString(event.SourceIP),
		event.Description,
		nullString(string(event.Metadata)),
		nullString(event.RequestID),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// Query implements Store.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	where, args := buildWhere(filter)
	args = append(args, filter.limit(), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, type, outcome, actor_name, actor_type,
			target_id, target_type, source_ip, description, metadata, request_id
		FROM audit_events`+where+`
		ORDER BY timestamp DESC, id
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	events := make([]Event, 0, filter.limit())
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to scan audit event row")
			continue
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}

// Count implements Store.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := buildWhere(filter)
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return count, nil
}

// DeleteBefore implements Store.
func (s *DuckDBStore) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}
	return count, nil
}

// buildWhere returns a WHERE clause (with leading space) and its arguments.
func buildWhere(filter QueryFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conditions = append(conditions, "type IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.ActorName != "" {
		conditions = append(conditions, "actor_name = ?")
		args = append(args, filter.ActorName)
	}
	if filter.TargetID != "" {
		conditions = append(conditions, "target_id = ?")
		args = append(args, filter.TargetID)
	}
	if filter.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime.UTC())
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.EndTime.UTC())
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		event                Event
		eventType, outcome   string
		actorName, sourceIP  sql.NullString
		targetID, targetType sql.NullString
		metadata, requestID  sql.NullString
	)
	if err := row.Scan(
		&event.ID, &event.Timestamp, &eventType, &outcome, &actorName, &event.Actor.Type,
		&targetID, &targetType, &sourceIP, &event.Description, &metadata, &requestID,
	); err != nil {
		return nil, err
	}

	event.Timestamp = event.Timestamp.UTC()
	event.Type = EventType(eventType)
	event.Outcome = Outcome(outcome)
	event.Actor.Name = actorName.String
	event.SourceIP = sourceIP.String
	event.RequestID = requestID.String
	if targetID.Valid {
		event.Target = &Target{ID: targetID.String, Type: targetType.String}
	}
	if metadata.Valid && metadata.String != "" {
		event.Metadata = json.RawMessage(metadata.String)
	}
	return &event, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
