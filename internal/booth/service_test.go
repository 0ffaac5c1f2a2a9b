// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/database"
	"github.com/tomtom215/snapbooth/internal/models"
)

// testDBSemaphore serializes DuckDB use across tests.
var testDBSemaphore = make(chan struct{}, 1)

// memObjects is an in-memory ObjectStore.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "/files/" + key, nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// fakeCompositor records its inputs and returns a fixed image.
type fakeCompositor struct {
	photoKeys []string
	frameKey  string
	err       error
}

func (f *fakeCompositor) Compose(_ context.Context, photoKeys []string, frameKey string) ([]byte, error) {
	f.photoKeys, f.frameKey = photoKeys, frameKey
	if f.err != nil {
		return nil, f.err
	}
	return encodePNG(2, 2), nil
}

// fakeMailer records sent messages.
type fakeMailer struct {
	sent []models.PhotoEmail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg models.PhotoEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// recordingPublisher keeps published event types in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	svc        *Service
	db         *database.DB
	objects    *memObjects
	compositor *fakeCompositor
	mailer     *fakeMailer
	events     *recordingPublisher
	clock      *testClock
}

func testBoothConfig() config.BoothConfig {
	return config.BoothConfig{
		CodeLength:      8,
		CodeTTL:         time.Hour,
		SessionRate:     35000,
		Currency:        "IDR",
		SessionDuration: 120 * time.Second,
		MaxPhotoBytes:   5 << 20,
		MaxFrameBytes:   15 << 20,
		PageSize:        10,
	}
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{
		Path:                   ":memory:",
		MaxMemory:              "1GB",
		Threads:                2,
		PreserveInsertionOrder: true,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:         db,
		objects:    newMemObjects(),
		compositor: &fakeCompositor{},
		mailer:     &fakeMailer{},
		events:     &recordingPublisher{},
		clock:      &testClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)},
	}
	env.svc, err = NewService(testBoothConfig(), Deps{
		Store:      db,
		Objects:    env.objects,
		Compositor: env.compositor,
		Mailer:     env.mailer,
		Events:     env.events,
		Now:        env.clock.Now,
		Location:   time.UTC,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return env
}

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func checkErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

func encodePNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// insertCode stores a code directly, bypassing the generator.
func insertCode(t *testing.T, env *testEnv, code string, status models.CodeStatus, expiredAt *time.Time) {
	t.Helper()
	checkNoError(t, env.db.InsertCode(context.Background(), &models.SessionCode{
		Code:      code,
		Status:    status,
		ExpiredAt: expiredAt,
		CreatedAt: env.clock.Now(),
	}))
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	if _, err := NewService(testBoothConfig(), Deps{Objects: newMemObjects()}); err == nil {
		t.Error("expected error without store")
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrCodeNotFound, ErrNotFound},
		{ErrCodeAlreadyUsed, ErrConflict},
		{ErrCodeExpired, ErrExpired},
		{validationf("bad %s", "input"), ErrValidation},
		{upstream("smtp down", errors.New("dial tcp")), ErrUpstream},
		{fmt.Errorf("wrapped: %w", ErrSessionNotFound), ErrNotFound},
		{errors.New("plain"), nil},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.kind {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.kind)
		}
	}

	if Message(fmt.Errorf("ctx: %w", ErrCodeExpired)) != "session code has expired" {
		t.Error("Message should unwrap to the client message")
	}
	if Message(errors.New("db exploded")) != "" {
		t.Error("unclassified errors must not leak a message")
	}

	cause := errors.New("connection reset")
	if err := upstream("failed to store photo", cause); !errors.Is(err, cause) {
		t.Error("upstream error should wrap its cause")
	}
}
