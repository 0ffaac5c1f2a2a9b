// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package metrics exposes the Prometheus instruments for the booth.
// Everything registers with the default registry and is served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Booth Metrics
	CodesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_codes_generated_total",
			Help: "Total number of session codes generated",
		},
		[]string{"source"}, // "operator", "admin_session"
	)

	CodeClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_code_claims_total",
			Help: "Code claim attempts by outcome",
		},
		[]string{"result"}, // "claimed", "resumed", "not_found", "used", "expired", "invalid"
	)

	CodeVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_code_verifications_total",
			Help: "Code verification attempts by outcome",
		},
		[]string{"result"},
	)

	PhotosStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booth_photos_stored_total",
			Help: "Total number of session photos stored",
		},
	)

	PhotoBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booth_photo_size_bytes",
			Help:    "Size of uploaded session photos",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 8), // 64KiB .. 8MiB
		},
	)

	// Compositor Metrics
	CompositeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compositor_render_duration_seconds",
			Help:    "Time to render one composite",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
	)

	CompositeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compositor_errors_total",
			Help: "Composite renders that failed",
		},
		[]string{"stage"}, // "load", "decode", "encode", "store"
	)

	// Mail Metrics
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailer_emails_total",
			Help: "Emails handled by delivery path and result",
		},
		[]string{"transport", "result"}, // transport: "smtp", "log"
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"cache_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events published to the in-process bus",
		},
		[]string{"event_type"},
	)

	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_publish_errors_total",
			Help: "Domain events that could not be published",
		},
	)

	// Audit Metrics
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Audit events by write result",
		},
		[]string{"result"}, // "saved", "dropped", "failed"
	)

	AuditEventsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_pruned_total",
			Help: "Audit events removed by retention cleanup",
		},
	)

	// Backup Metrics
	BackupsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backups_created_total",
			Help: "Backup archives by trigger and result",
		},
		[]string{"trigger", "result"}, // trigger: "manual", "scheduled"; result: "completed", "failed"
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Time taken to write a backup archive",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms .. ~51s
		},
	)

	BackupsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backups_pruned_total",
			Help: "Backup archives removed by retention policy",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPhoto records one stored photo of the given size.
func RecordPhoto(size int64) {
	PhotosStored.Inc()
	PhotoBytes.Observe(float64(size))
}

// RecordComposite records a finished render. A non-empty stage marks a failure.
func RecordComposite(duration time.Duration, failedStage string) {
	if failedStage != "" {
		CompositeErrors.WithLabelValues(failedStage).Inc()
		return
	}
	CompositeDuration.Observe(duration.Seconds())
}

// RecordEmail records one email delivery attempt.
func RecordEmail(transport string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EmailsSent.WithLabelValues(transport, result).Inc()
}

// RecordCircuitBreakerTransition updates the breaker gauges on a state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(circuitStateValue(to))
}

func circuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
