// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package backup writes point-in-time archives of the booth database and,
// for the local storage backend, the uploaded photos, frames and
// composites.
//
// Backup Types:
//
//	database: DuckDB export (schema.sql, load.sql, one CSV per table)
//	full:     database export plus the local upload directory
//
// Archive Layout:
//
//	backup-{type}-{timestamp}-{id}.tar.gz
//	├── database/
//	│   ├── schema.sql
//	│   ├── load.sql
//	│   └── *.csv
//	├── media/            (full backups only)
//	│   ├── sessions/...
//	│   └── frames/...
//	└── backup-metadata.json
//
// Every archive is checksummed with SHA-256 and recorded in metadata.json
// in the backup directory. Verify recomputes the checksum and marks a
// mismatching archive as corrupted.
//
// The Manager is a suture.Service: when an interval is configured it
// creates scheduled backups and then applies the retention policy. Daily
// or longer intervals run at the preferred hour.
//
// Usage:
//
//	manager, err := backup.NewManager(cfg.Backup, db, mediaDir)
//	tree.AddDataService(manager)
//
//	b, err := manager.CreateBackup(ctx, backup.TypeFull, "before event")
//
// Restoring is an offline operation: stop the server, extract the archive,
// and run IMPORT DATABASE 'database' against an empty database file.
package backup
