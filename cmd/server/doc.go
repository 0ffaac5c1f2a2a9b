// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

/*
Package main is the entry point for the Snapbooth server.

Snapbooth runs the backend of a self-service photobooth: operators sell
session codes, customers claim a code at the booth, capture photos under a
server-held countdown, pick a frame and receive the composited print by
email. Staff manage codes, sessions, frames and earnings from an admin area.

# Application Architecture

Long-running components run under a Suture v4 supervisor tree:

	RootSupervisor ("snapbooth")
	├── DataSupervisor ("data-layer")
	│   ├── Backup Scheduler (archives, retention)
	│   ├── Audit Logger (buffered writes, retention cleanup)
	│   └── Revocation GC (badger revocation store only)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Audit Recorder (bus to audit trail)
	│   ├── WebSocket Hub (live admin feed)
	│   └── Event Forwarder (watermill bus to hub)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Initialization order:

 1. Configuration: Koanf v2 with defaults, YAML file and environment
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB for codes, sessions, photos, frames and users
 4. Object storage: local directory or MinIO bucket
 5. Compositor and mailer (SMTP with log fallback)
 6. Event bus and websocket hub
 7. Authentication (JWT, revocation store) and Casbin authorization
 8. Audit trail (audit_events table) and backup manager
 9. Booth service and HTTP router
 10. Supervisor tree

# Configuration

	HTTP_PORT=8080               # HTTP server port
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console
	DUCKDB_PATH=/data/snapbooth.duckdb

	AUTH_MODE=jwt                # jwt or none
	JWT_SECRET=<32+ chars>
	ADMIN_USERNAME=admin         # created on first start when no users exist
	ADMIN_PASSWORD=<password>

	STORAGE_BACKEND=local        # local or minio
	SESSION_RATE=35000           # price per session for earnings
	SMTP_HOST=smtp.example.com   # empty logs emails instead of sending

	AUDIT_RETENTION_DAYS=90      # 0 keeps audit events forever
	BACKUP_DIR=/data/backups
	BACKUP_INTERVAL=24h          # 0 disables scheduled backups

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests, websocket clients receive a close frame, and the database is
closed after the tree stops.
*/
package main
