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

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/models"
)

// CodeExists reports whether a code is stored in any state.
func (db *DB) CodeExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_codes WHERE code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check session code: %w", err)
	}
	return n > 0, nil
}

// InsertCode stores a new session code. A code already present returns ErrDuplicate.
func (db *DB) InsertCode(ctx context.Context, c *models.SessionCode) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO session_codes (code, status, expired_at, created_at, used_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.Code, string(c.Status), nullTime(c.ExpiredAt), c.CreatedAt.UTC(), nullTime(c.UsedAt),
	)
	return classifyError(err, "insert session code")
}

// GetCode returns the stored code record, or nil if unknown.
func (db *DB) GetCode(ctx context.Context, code string) (*models.SessionCode, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT code, status, expired_at, created_at, used_at
		FROM session_codes
		WHERE code = ?`, code)

	var (
		c         models.SessionCode
		status    string
		expiredAt sql.NullTime
		usedAt    sql.NullTime
	)
	if err := row.Scan(&c.Code, &status, &expiredAt, &c.CreatedAt, &usedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session code: %w", err)
	}
	c.Status = models.CodeStatus(status)
	c.ExpiredAt = timePtr(expiredAt)
	c.UsedAt = timePtr(usedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// ClaimCode marks the code USED if, and only if, it is still ACTIVE and not
// past its expiry at now. It is a single conditional update: of several
// concurrent callers at most one sees true. A lost write race is reported
// as (false, nil) like any other unmet condition.
func (db *DB) ClaimCode(ctx context.Context, code string, now time.Time) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now = now.UTC()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE session_codes
		SET status = 'USED', used_at = ?
		WHERE code = ?
		  AND status = 'ACTIVE'
		  AND (expired_at IS NULL OR expired_at >= ?)`,
		now, code, now,
	)
	if err != nil {
		if cerr := classifyError(err, "claim session code"); errors.Is(cerr, ErrWriteConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim session code: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return n == 1, nil
}

// ClaimCodeWithSession claims s.Code as ClaimCode does and inserts s in the
// same transaction. Either both happen or neither does; false with a nil
// error means the code was not claimable.
func (db *DB) ClaimCodeWithSession(ctx context.Context, s *models.Session, now time.Time) (claimed bool, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer func() {
		if !claimed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logging.Warn().Err(rbErr).Str("code", s.Code).Msg("Failed to roll back claim transaction")
			}
		}
	}()

	now = now.UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE session_codes
		SET status = 'USED', used_at = ?
		WHERE code = ?
		  AND status = 'ACTIVE'
		  AND (expired_at IS NULL OR expired_at >= ?)`,
		now, s.Code, now,
	)
	if err != nil {
		if cerr := classifyError(err, "claim session code"); errors.Is(cerr, ErrWriteConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim session code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	if n != 1 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, code, status, created_at, used_at, timer_expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Code, string(s.Status), s.CreatedAt.UTC(), nullTime(s.UsedAt), nullTime(s.TimerExpiresAt),
	); err != nil {
		return false, classifyError(err, "insert session")
	}

	if err := tx.Commit(); err != nil {
		if cerr := classifyError(err, "commit claim"); errors.Is(cerr, ErrWriteConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to commit claim: %w", err)
	}
	return true, nil
}
