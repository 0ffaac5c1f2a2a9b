// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package database

import (
	"context"
	"fmt"
	"time"
)

// CountSessionsSince counts sessions created at or after since.
// A nil since counts every session.
func (db *DB) CountSessionsSince(ctx context.Context, since *time.Time) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query, args := `SELECT COUNT(*) FROM sessions`, []interface{}{}
	if since != nil {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UTC())
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// SessionCountsByMinute returns session counts per UTC minute for sessions
// created at or after from. Minutes with no sessions are absent. Every zone
// offset is a whole number of minutes, so callers can bucket the result into
// local days without losing precision.
func (db *DB) SessionCountsByMinute(ctx context.Context, from time.Time) (map[time.Time]int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT date_trunc('minute', created_at) AS minute, COUNT(*) AS n
		FROM sessions
		WHERE created_at >= ?
		GROUP BY minute`,
		from.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query session counts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	counts := make(map[time.Time]int)
	for rows.Next() {
		var (
			minute time.Time
			n      int
		)
		if err := rows.Scan(&minute, &n); err != nil {
			return nil, fmt.Errorf("failed to scan session count: %w", err)
		}
		counts[minute.UTC()] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session counts: %w", err)
	}
	return counts, nil
}
