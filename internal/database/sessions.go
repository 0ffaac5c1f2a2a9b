// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/snapbooth/internal/models"
)

const sessionColumns = `
	s.id, s.code, s.status, s.created_at, s.used_at, s.timer_expires_at,
	(SELECT COUNT(*) FROM photos p WHERE p.session_id = s.id) AS photo_count`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s       models.Session
		status  string
		usedAt  sql.NullTime
		timerAt sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.Code, &status, &s.CreatedAt, &usedAt, &timerAt, &s.PhotoCount); err != nil {
		return nil, err
	}
	s.Status = models.SessionStatus(status)
	s.UsedAt = timePtr(usedAt)
	s.TimerExpiresAt = timePtr(timerAt)
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

// InsertSession stores a session. A second session for the same code
// returns ErrDuplicate.
func (db *DB) InsertSession(ctx context.Context, s *models.Session) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, code, status, created_at, used_at, timer_expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Code, string(s.Status), s.CreatedAt.UTC(), nullTime(s.UsedAt), nullTime(s.TimerExpiresAt),
	)
	return classifyError(err, "insert session")
}

// StartSessionTimer records the claim time and timer deadline of a session
// created ahead of its claim. A timer that is already running is left
// untouched; the result reports whether this call started it.
func (db *DB) StartSessionTimer(ctx context.Context, id string, usedAt, expiresAt time.Time) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE sessions
		SET used_at = ?, timer_expires_at = ?
		WHERE id = ? AND timer_expires_at IS NULL`,
		usedAt.UTC(), expiresAt.UTC(), id,
	)
	if err != nil {
		if cerr := classifyError(err, "start session timer"); errors.Is(cerr, ErrWriteConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to start session timer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// GetSession returns a session by id, or nil if unknown.
func (db *DB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return db.getSessionWhere(ctx, "s.id = ?", id)
}

// GetSessionByCode returns the session bound to code, or nil.
func (db *DB) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	return db.getSessionWhere(ctx, "s.code = ?", code)
}

func (db *DB) getSessionWhere(ctx context.Context, where string, arg interface{}) (*models.Session, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + sessionColumns + ` FROM sessions s WHERE ` + where
	s, err := scanSession(db.conn.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// ListSessions returns one page of sessions, newest first, and the total count.
func (db *DB) ListSessions(ctx context.Context, limit, offset int) ([]models.Session, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s
		ORDER BY s.created_at DESC, s.id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer closeWithLog(rows, "rows")

	sessions := make([]models.Session, 0, limit)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, total, nil
}

// UpdateSessionStatus sets the status of a session. Returns false if the id is unknown.
func (db *DB) UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return false, classifyError(err, "update session status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}
