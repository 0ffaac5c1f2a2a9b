// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/snapbooth/internal/config"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"photos/s1/p1.png", "photos/s1/p1.png", false},
		{"/final-photos/a.png", "final-photos/a.png", false},
		{"", "", true},
		{"/", "", true},
		{"../etc/passwd", "", true},
		{"photos/../../x", "", true},
		{"photos//x.png", "", true},
		{"photos/./x.png", "", true},
		{`photos\x.png`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("CleanKey(%q) err = %v, want ErrInvalidKey", tt.key, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("CleanKey(%q) = %q, %v; want %q", tt.key, got, err, tt.want)
			}
		})
	}
}

func TestLocal_PutGetDelete(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root, "https://booth.example.com/")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	url, err := l.Put(ctx, "photos/s1/p1.png", strings.NewReader("png-bytes"), 9, "image/png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "https://booth.example.com/files/photos/s1/p1.png" {
		t.Errorf("url = %s", url)
	}
	if _, err := os.Stat(filepath.Join(root, "photos", "s1", "p1.png")); err != nil {
		t.Errorf("object file missing: %v", err)
	}

	rc, err := l.Get(ctx, "photos/s1/p1.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "png-bytes" {
		t.Errorf("content = %q", data)
	}

	if err := l.Delete(ctx, "photos/s1/p1.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := l.Get(ctx, "photos/s1/p1.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	if err := l.Delete(ctx, "photos/s1/p1.png"); err != nil {
		t.Errorf("deleting a missing object should succeed, got %v", err)
	}
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := l.Put(context.Background(), "../outside.png", strings.NewReader("x"), 1, "image/png"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Put err = %v, want ErrInvalidKey", err)
	}
	if _, err := l.Get(context.Background(), "../../etc/passwd"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Get err = %v, want ErrInvalidKey", err)
	}
}

func TestLocal_RelativeURL(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	url, err := l.Put(context.Background(), "frames/f.png", strings.NewReader("x"), 1, "image/png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "/files/frames/f.png" {
		t.Errorf("url = %s, want /files/frames/f.png", url)
	}
}

func TestLocal_CanceledContext(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Put(ctx, "a.png", strings.NewReader("x"), 1, "image/png"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	b, err := New(ctx, &config.StorageConfig{Backend: "local", LocalDir: t.TempDir()}, "")
	if err != nil {
		t.Fatalf("New(local): %v", err)
	}
	if b.Name() != "local" {
		t.Errorf("backend = %s, want local", b.Name())
	}

	if _, err := New(ctx, &config.StorageConfig{Backend: "ftp"}, ""); err == nil {
		t.Error("unknown backend should fail")
	}
	if _, err := New(ctx, &config.StorageConfig{Backend: "minio"}, ""); err == nil {
		t.Error("minio without endpoint should fail")
	}
}

func TestNewMinIOClient(t *testing.T) {
	client, err := newMinIOClient(&config.StorageConfig{
		MinIOEndpoint:  "localhost:9000",
		MinIOAccessKey: "booth",
		MinIOSecretKey: "booth-secret",
		MinIOBucket:    "snapbooth",
	})
	if err != nil {
		t.Fatalf("newMinIOClient: %v", err)
	}
	if client.EndpointURL().Host != "localhost:9000" {
		t.Errorf("endpoint = %s", client.EndpointURL())
	}
}
