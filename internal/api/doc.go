// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

/*
Package api exposes the booth, frame, admin and auth operations over HTTP.

Routing uses chi. Every JSON response has the same envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "...", "request_id": "..."}, "meta": {...}}

Service errors are mapped to status codes in one place (errors.go):

	booth.ErrValidation          400 VALIDATION_FAILED
	auth.ErrUnauthenticated      401 UNAUTHORIZED
	authz.ErrForbidden           403 FORBIDDEN
	booth.ErrNotFound            404 NOT_FOUND
	booth.ErrConflict            409 CONFLICT
	booth.ErrExpired             410 EXPIRED
	booth.ErrUpstream            502 EXTERNAL_SERVICE_FAILED
	anything else                500 INTERNAL_ERROR

Customer-facing booth routes are public and rate limited by IP. Admin
routes authenticate with a bearer token or the auth_token cookie and are
authorized against the casbin policy.
*/
package api
