// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package compositor renders a session's photos into a frame overlay.
//
// Photos are stretched into six fixed slots on a 2635x3715 canvas in
// upload order; the frame is then drawn over them so its transparent
// windows show the photos. Photos beyond the sixth are ignored, and a
// photo that cannot be read or decoded leaves its slot empty.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // decoder
	"image/png"
	"io"
	"time"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // decoder
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/snapbooth/internal/cache"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
	"github.com/tomtom215/snapbooth/internal/models"
)

// Slot is a photo placeholder on the canvas.
type Slot struct {
	X, Y, Width, Height int
}

// Rect returns the slot as a canvas rectangle.
func (s Slot) Rect() image.Rectangle {
	return image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
}

// Slots are filled in order: the left column top to bottom, then the right.
var Slots = [models.PhotoSlots]Slot{
	{X: 134, Y: 511, Width: 1048, Height: 659},
	{X: 134, Y: 1358, Width: 1048, Height: 659},
	{X: 134, Y: 2213, Width: 1048, Height: 659},
	{X: 1460, Y: 511, Width: 1048, Height: 659},
	{X: 1460, Y: 1358, Width: 1048, Height: 659},
	{X: 1460, Y: 2213, Width: 1048, Height: 659},
}

// Objects reads stored images.
type Objects interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Compositor renders composites. Decoded frames are cached by storage key;
// frame keys change whenever a frame image is replaced.
type Compositor struct {
	objects Objects
	frames  *cache.LRU[image.Image]
	maxRead int64
}

// New creates a compositor reading images from objects.
func New(objects Objects, frameCacheSize int, frameCacheTTL time.Duration) *Compositor {
	return &Compositor{
		objects: objects,
		frames:  cache.NewLRU[image.Image]("frame", frameCacheSize, frameCacheTTL),
		maxRead: 64 << 20,
	}
}

// Compose renders the photos into the frame and returns PNG bytes.
func (c *Compositor) Compose(ctx context.Context, photoKeys []string, frameKey string) (data []byte, err error) {
	start := time.Now()
	stage := ""
	defer func() {
		metrics.RecordComposite(time.Since(start), stage)
	}()

	frame, err := c.loadFrame(ctx, frameKey)
	if err != nil {
		stage = "frame"
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, models.CanvasWidth, models.CanvasHeight))
	if err := c.drawPhotos(ctx, canvas, photoKeys); err != nil {
		stage = "photos"
		return nil, err
	}
	draw.Draw(canvas, canvas.Bounds(), frame, frame.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		stage = "encode"
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}
	return buf.Bytes(), nil
}

// loadFrame returns the decoded frame scaled to the canvas.
func (c *Compositor) loadFrame(ctx context.Context, key string) (image.Image, error) {
	if img, ok := c.frames.Get(key); ok {
		return img, nil
	}

	img, err := c.decode(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load frame %s: %w", key, err)
	}
	if b := img.Bounds(); b.Dx() != models.CanvasWidth || b.Dy() != models.CanvasHeight {
		img = resize.Resize(models.CanvasWidth, models.CanvasHeight, img, resize.Lanczos3)
	}
	c.frames.Add(key, img)
	return img, nil
}

// drawPhotos decodes and scales photos concurrently, then draws each into
// its slot. Unreadable photos are logged and skipped.
func (c *Compositor) drawPhotos(ctx context.Context, canvas draw.Image, keys []string) error {
	if len(keys) > len(Slots) {
		keys = keys[:len(Slots)]
	}

	scaled := make([]image.Image, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			img, err := c.decode(gctx, key)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logging.Ctx(ctx).Warn().Err(err).Str("key", key).Int("slot", i+1).Msg("Skipping unreadable photo")
				return nil
			}
			slot := Slots[i]
			scaled[i] = resize.Resize(uint(slot.Width), uint(slot.Height), img, resize.Lanczos3)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, img := range scaled {
		if img == nil {
			continue
		}
		draw.Draw(canvas, Slots[i].Rect(), img, img.Bounds().Min, draw.Src)
	}
	return nil
}

func (c *Compositor) decode(ctx context.Context, key string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := c.objects.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			logging.Debug().Err(cerr).Str("key", key).Msg("Failed to close image reader")
		}
	}()

	img, _, err := image.Decode(io.LimitReader(rc, c.maxRead))
	if err != nil {
		return nil, errors.Join(ErrUndecodable, err)
	}
	return img, nil
}

// ErrUndecodable marks stored data that is not a supported image.
var ErrUndecodable = errors.New("compositor: image could not be decoded")
