// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

/*
Package audit keeps the staff audit trail: who generated codes, changed the
frame catalogue, deleted photos, signed in or created accounts, and which
customer actions (claims, composites, emails) happened when.

Events reach the trail two ways:

  - Recorder subscribes to the domain event bus and converts booth events.
    The acting operator comes from the event envelope; events without one
    are attributed to the customer at the booth.
  - The HTTP layer logs authentication events directly with Logger.Log,
    since login attempts do not pass through the booth service.

Logger writes asynchronously through a bounded buffer so a slow database
never delays a request; when the buffer is full the event is dropped and
counted in audit_events_total{result="dropped"}. Logger.Serve runs as a
supervised service that drains the buffer and prunes events older than the
retention window.

Storage:

  - DuckDBStore: the audit_events table in the booth database
  - MemoryStore: bounded in-process store for tests and AUDIT_ENABLED=false

Export formats are JSON and CEF (Common Event Format) for SIEM ingestion.
*/
package audit
