// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

/*
Package supervisor runs Snapbooth's long-lived goroutines under a suture
supervisor tree.

Layers:

	snapbooth (root)
	├── data-layer       badger revocation GC (when the badger store is used)
	├── messaging-layer  websocket hub, event forwarder
	└── api-layer        HTTP server

A service that returns an error is restarted with backoff; crossing the
failure threshold pauses restarts for FailureBackoff. Supervisor events are
logged through sutureslog into the zerolog pipeline.

Services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and fmt.Stringer so they are named in log lines.
*/
package supervisor
