// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package audit

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func testAuditConfig() config.AuditConfig {
	return config.AuditConfig{Enabled: true, RetentionDays: 30, CleanupInterval: time.Hour, BufferSize: 8}
}

// startLogger runs l.Serve until the test ends and returns a stop func
// that waits for the drain.
func startLogger(t *testing.T, l *Logger) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve returned %v, want context.Canceled", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Serve did not stop")
		}
	}
	t.Cleanup(stop)
	return stop
}

func waitForLen(t *testing.T, store *MemoryStore, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for store.Len() < want {
		if time.Now().After(deadline) {
			t.Fatalf("store has %d events, want %d", store.Len(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLogger_WritesEvents(t *testing.T) {
	store := NewMemoryStore(100)
	l := NewLogger(store, testAuditConfig())
	l.now = func() time.Time { return baseTime }
	startLogger(t, l)

	before := testutil.ToFloat64(metrics.AuditEvents.WithLabelValues("saved"))
	l.Log(&Event{Type: EventLogout, Outcome: OutcomeSuccess, Actor: Actor{Name: "admin", Type: ActorStaff}})
	waitForLen(t, store, 1)

	got, _ := store.Query(context.Background(), DefaultQueryFilter()) //nolint:errcheck // memory store never fails
	if got[0].ID == "" || !got[0].Timestamp.Equal(baseTime) {
		t.Errorf("ID and Timestamp should be filled in, got %+v", got[0])
	}
	if after := testutil.ToFloat64(metrics.AuditEvents.WithLabelValues("saved")); after < before+1 {
		t.Errorf("saved counter = %v, want >= %v", after, before+1)
	}
}

func TestLogger_DrainsOnShutdown(t *testing.T) {
	store := NewMemoryStore(100)
	l := NewLogger(store, testAuditConfig())

	// Queued before Serve starts; all must be written by the time Serve returns.
	for i := 0; i < 5; i++ {
		l.Log(&Event{Type: EventCodeGenerated, Actor: Actor{Type: ActorStaff}})
	}
	stop := startLogger(t, l)
	stop()

	if store.Len() != 5 {
		t.Errorf("store has %d events after shutdown, want 5", store.Len())
	}
}

func TestLogger_DropsWhenFull(t *testing.T) {
	cfg := testAuditConfig()
	cfg.BufferSize = 2
	l := NewLogger(NewMemoryStore(10), cfg)

	before := testutil.ToFloat64(metrics.AuditEvents.WithLabelValues("dropped"))
	for i := 0; i < 3; i++ {
		l.Log(&Event{Type: EventEmailSent})
	}
	if after := testutil.ToFloat64(metrics.AuditEvents.WithLabelValues("dropped")); after != before+1 {
		t.Errorf("dropped counter = %v, want %v", after, before+1)
	}
}

func TestLogger_DisabledAndNil(t *testing.T) {
	cfg := testAuditConfig()
	cfg.Enabled = false
	l := NewLogger(NewMemoryStore(10), cfg)
	l.Log(&Event{Type: EventLogout})
	if len(l.events) != 0 {
		t.Error("disabled logger should not queue events")
	}

	var nilLogger *Logger
	nilLogger.Log(&Event{Type: EventLogout})
	if nilLogger.Store() != nil {
		t.Error("nil logger should have no store")
	}
}

func TestLogger_PrunesOnStart(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	for _, e := range []*Event{
		{ID: "old", Timestamp: baseTime.AddDate(0, 0, -31)},
		{ID: "new", Timestamp: baseTime.AddDate(0, 0, -1)},
	} {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	l := NewLogger(store, testAuditConfig())
	l.now = func() time.Time { return baseTime }
	before := testutil.ToFloat64(metrics.AuditEventsPruned)
	l.prune(ctx)

	if store.Len() != 1 {
		t.Fatalf("store has %d events, want 1", store.Len())
	}
	if got := testutil.ToFloat64(metrics.AuditEventsPruned); got != before+1 {
		t.Errorf("pruned counter = %v, want %v", got, before+1)
	}

	l.cfg.RetentionDays = 0
	if err := store.Save(ctx, &Event{ID: "ancient", Timestamp: baseTime.AddDate(-5, 0, 0)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	l.prune(ctx)
	if store.Len() != 2 {
		t.Errorf("zero retention should keep everything, store has %d", store.Len())
	}
}

func TestNewRequestEvent(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	req.RemoteAddr = "192.0.2.7:5123"
	req = req.WithContext(logging.ContextWithRequestID(req.Context(), "req-9"))

	e := NewRequestEvent(req, EventLoginFailed, OutcomeFailure, "admin", "invalid credentials")
	if e.SourceIP != "192.0.2.7" || e.RequestID != "req-9" || e.Actor.Type != ActorStaff || e.Actor.Name != "admin" {
		t.Errorf("event = %+v", e)
	}

	if got := clientIP("198.51.100.4"); got != "198.51.100.4" {
		t.Errorf("clientIP without port = %q", got)
	}
}
