// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package database

import (
	"context"
	"fmt"
	"strings"
)

// backedUpTables are counted into backup metadata.
var backedUpTables = []string{"session_codes", "sessions", "photos", "frames", "users"}

// Path returns the configured database file path.
func (db *DB) Path() string {
	return db.cfg.Path
}

// ExportTo writes the schema and every table to dir as DuckDB export files
// (schema.sql, load.sql and one CSV per table). The result can be loaded
// into an empty database with IMPORT DATABASE.
func (db *DB) ExportTo(ctx context.Context, dir string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if db.cfg.Path != ":memory:" {
		if err := db.Checkpoint(ctx); err != nil {
			return err
		}
	}

	query := fmt.Sprintf("EXPORT DATABASE '%s'", strings.ReplaceAll(dir, "'", "''"))
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// TableCounts returns the row count of each booth table.
func (db *DB) TableCounts(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	counts := make(map[string]int64, len(backedUpTables))
	for _, table := range backedUpTables {
		var n int64
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
