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

const frameColumns = `id, name, url, storage_key, filename, content_type, size, width, height, created_at`

func scanFrame(row rowScanner) (*models.Frame, error) {
	var f models.Frame
	err := row.Scan(&f.ID, &f.Name, &f.URL, &f.StorageKey, &f.Filename, &f.ContentType,
		&f.Size, &f.Width, &f.Height, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

// InsertFrame stores a frame.
func (db *DB) InsertFrame(ctx context.Context, f *models.Frame) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO frames (`+frameColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.URL, f.StorageKey, f.Filename, f.ContentType, f.Size, f.Width, f.Height, f.CreatedAt.UTC(),
	)
	return classifyError(err, "insert frame")
}

// GetFrame returns a frame by id, or nil if unknown.
func (db *DB) GetFrame(ctx context.Context, id string) (*models.Frame, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	f, err := scanFrame(db.conn.QueryRowContext(ctx, `SELECT `+frameColumns+` FROM frames WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get frame: %w", err)
	}
	return f, nil
}

// ListFrames returns all frames, newest first.
func (db *DB) ListFrames(ctx context.Context) ([]models.Frame, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+frameColumns+` FROM frames ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer closeWithLog(rows, "rows")

	frames := []models.Frame{}
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames = append(frames, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frames: %w", err)
	}
	return frames, nil
}

// UpdateFrame replaces a frame's file metadata and name.
// Returns false if the id is unknown.
func (db *DB) UpdateFrame(ctx context.Context, f *models.Frame) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE frames
		SET name = ?, url = ?, storage_key = ?, filename = ?, content_type = ?,
		    size = ?, width = ?, height = ?
		WHERE id = ?`,
		f.Name, f.URL, f.StorageKey, f.Filename, f.ContentType, f.Size, f.Width, f.Height, f.ID,
	)
	if err != nil {
		return false, classifyError(err, "update frame")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// DeleteFrame removes a frame row. Returns false if the id is unknown.
func (db *DB) DeleteFrame(ctx context.Context, id string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM frames WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete frame: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}
