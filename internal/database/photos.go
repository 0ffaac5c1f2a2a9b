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

	"github.com/tomtom215/snapbooth/internal/models"
)

const photoColumns = `id, session_id, photo_order, url, storage_key, content_type, size, created_at`

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var p models.Photo
	if err := row.Scan(&p.ID, &p.SessionID, &p.Order, &p.URL, &p.StorageKey, &p.ContentType, &p.Size, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// InsertPhoto stores a photo with order = (max order for its session) + 1 and
// writes the assigned order back into p. The order is computed in the same
// statement as the insert; a concurrent upload that picked the same order
// fails with ErrDuplicate on the (session_id, photo_order) constraint.
func (db *DB) InsertPhoto(ctx context.Context, p *models.Photo) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO photos (`+photoColumns+`)
		SELECT ?, ?, COALESCE(MAX(photo_order), 0) + 1, ?, ?, ?, ?, ?
		FROM photos
		WHERE session_id = ?
		RETURNING photo_order`,
		p.ID, p.SessionID, p.URL, p.StorageKey, p.ContentType, p.Size, p.CreatedAt.UTC(), p.SessionID,
	)
	if err := row.Scan(&p.Order); err != nil {
		return classifyError(err, "insert photo")
	}
	return nil
}

// GetPhoto returns a photo by id, or nil if unknown.
func (db *DB) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	p, err := scanPhoto(db.conn.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return p, nil
}

// ListPhotos returns a session's photos in capture order.
func (db *DB) ListPhotos(ctx context.Context, sessionID string) ([]models.Photo, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+photoColumns+`
		FROM photos
		WHERE session_id = ?
		ORDER BY photo_order`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer closeWithLog(rows, "rows")

	photos := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return photos, nil
}

// DeletePhoto removes one photo row. Returns false if the id is unknown.
func (db *DB) DeletePhoto(ctx context.Context, id string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete photo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

// DeleteSessionPhotos removes every photo of a session and returns the
// deleted rows so their files can be removed.
func (db *DB) DeleteSessionPhotos(ctx context.Context, sessionID string) ([]models.Photo, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `DELETE FROM photos WHERE session_id = ? RETURNING `+photoColumns, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete session photos: %w", err)
	}
	defer closeWithLog(rows, "rows")

	deleted := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deleted photo: %w", err)
		}
		deleted = append(deleted, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deleted photos: %w", err)
	}
	return deleted, nil
}
