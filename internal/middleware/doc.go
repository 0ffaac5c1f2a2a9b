// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

/*
Package middleware provides HTTP middleware components for the application.

Every component has the chi signature func(http.Handler) http.Handler and is
mounted with r.Use in the api router.

Key Components:

  - RequestID: X-Request-ID propagation into the logging context
  - AccessLog: one structured zerolog line per request
  - PrometheusMetrics: request count, latency and in-flight gauges labelled
    by route pattern
  - Compression: gzip for JSON responses

Middleware Stack:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Use(middleware.Compression)
	    ...
	})

Stored photos and frames are served outside the compressed group; they are
already compressed formats.
*/
package middleware
