// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/snapbooth/internal/models"
)

var (
	canvasPNGOnce sync.Once
	canvasPNG     []byte
)

// frameImage returns a transparent canvas-sized PNG, encoded once per run.
func frameImage(t *testing.T) []byte {
	t.Helper()
	canvasPNGOnce.Do(func() {
		var buf bytes.Buffer
		img := image.NewNRGBA(image.Rect(0, 0, models.CanvasWidth, models.CanvasHeight))
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("encode frame: %v", err)
		}
		canvasPNG = buf.Bytes()
	})
	return canvasPNG
}

func uploadTestFrame(t *testing.T, env *testEnv, name string) *models.Frame {
	t.Helper()
	f, err := env.svc.UploadFrame(context.Background(), FrameUpload{
		Name:        name,
		Filename:    "frame.png",
		ContentType: "image/png",
		Body:        bytes.NewReader(frameImage(t)),
	})
	checkNoError(t, err)
	return f
}

func TestUploadFrame(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	f := uploadTestFrame(t, env, "Birthday")
	if !strings.HasPrefix(f.ID, "frame-") {
		t.Errorf("id = %s, want frame-<millis>", f.ID)
	}
	if f.Width != models.CanvasWidth || f.Height != models.CanvasHeight {
		t.Errorf("dimensions = %dx%d", f.Width, f.Height)
	}
	if !env.objects.has(f.StorageKey) {
		t.Error("frame image not stored")
	}

	got, err := env.svc.GetFrame(ctx, f.ID)
	checkNoError(t, err)
	if got.Name != "Birthday" {
		t.Errorf("name = %s", got.Name)
	}

	// Same millisecond: the id moves forward instead of colliding.
	second := uploadTestFrame(t, env, "")
	if second.ID == f.ID {
		t.Error("frame ids collided")
	}
	if second.Name != second.ID {
		t.Errorf("unnamed frame name = %s, want its id", second.Name)
	}

	frames, err := env.svc.ListFrames(ctx)
	checkNoError(t, err)
	if len(frames) != 2 {
		t.Errorf("frames = %d, want 2", len(frames))
	}
}

func TestUploadFrame_WrongDimensions(t *testing.T) {
	env := setupTestService(t)

	_, err := env.svc.UploadFrame(context.Background(), FrameUpload{
		Filename:    "small.png",
		ContentType: "image/png",
		Body:        bytes.NewReader(encodePNG(100, 50)),
	})
	checkErrorIs(t, err, ErrValidation)
	if !strings.Contains(Message(err), "100x50") {
		t.Errorf("message %q should name the uploaded size", Message(err))
	}
	if env.objects.count() != 0 {
		t.Error("rejected frame left an object behind")
	}
}

func TestReplaceFrame(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	f := uploadTestFrame(t, env, "Old")

	env.clock.Advance(time.Second)
	renamed, err := env.svc.ReplaceFrame(ctx, f.ID, FrameUpload{Name: "Renamed"})
	checkNoError(t, err)
	if renamed.Name != "Renamed" || renamed.StorageKey != f.StorageKey {
		t.Errorf("rename = %+v", renamed)
	}

	replaced, err := env.svc.ReplaceFrame(ctx, f.ID, FrameUpload{
		Filename:    "new.png",
		ContentType: "image/png",
		Body:        bytes.NewReader(frameImage(t)),
	})
	checkNoError(t, err)
	if replaced.StorageKey == f.StorageKey {
		t.Fatal("replacement should use a new key")
	}
	if env.objects.has(f.StorageKey) || !env.objects.has(replaced.StorageKey) {
		t.Error("old object should be removed and new one stored")
	}
	if replaced.Name != "Renamed" {
		t.Errorf("name = %s, want it kept", replaced.Name)
	}

	_, err = env.svc.ReplaceFrame(ctx, "frame-0", FrameUpload{Name: "x"})
	checkErrorIs(t, err, ErrFrameNotFound)
}

func TestDeleteFrame(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	f := uploadTestFrame(t, env, "Gone")

	checkNoError(t, env.svc.DeleteFrame(ctx, f.ID))
	if env.objects.has(f.StorageKey) {
		t.Error("frame image still stored")
	}
	_, err := env.svc.GetFrame(ctx, f.ID)
	checkErrorIs(t, err, ErrFrameNotFound)
	checkErrorIs(t, env.svc.DeleteFrame(ctx, f.ID), ErrFrameNotFound)
}
