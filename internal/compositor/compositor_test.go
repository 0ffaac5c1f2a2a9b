// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/snapbooth/internal/models"
)

type memObjects struct {
	mu    sync.Mutex
	data  map[string][]byte
	reads map[string]int
}

func newMemObjects() *memObjects {
	return &memObjects{data: make(map[string][]byte), reads: make(map[string]int)}
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[key]++
	b, ok := m.data[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memObjects) readCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[key]
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// testFrame is transparent apart from an opaque white band across the top.
func testFrame() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, models.CanvasWidth, models.CanvasHeight))
	for y := 0; y < 100; y++ {
		for x := 0; x < models.CanvasWidth; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func setup(t *testing.T) (*Compositor, *memObjects) {
	t.Helper()
	objects := newMemObjects()
	objects.data["frames/f.png"] = encodePNG(t, testFrame())
	objects.data["photos/red.png"] = encodePNG(t, solid(40, 30, red))
	objects.data["photos/blue.png"] = encodePNG(t, solid(30, 40, blue))
	objects.data["photos/garbage.png"] = []byte("not an image")
	return New(objects, 4, time.Minute), objects
}

func decodeComposite(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode composite: %v", err)
	}
	if b := img.Bounds(); b.Dx() != models.CanvasWidth || b.Dy() != models.CanvasHeight {
		t.Fatalf("composite is %dx%d", b.Dx(), b.Dy())
	}
	return img
}

func slotCenter(i int) (int, int) {
	s := Slots[i]
	return s.X + s.Width/2, s.Y + s.Height/2
}

func sameRGB(got color.Color, want color.RGBA) bool {
	r, g, b, _ := got.RGBA()
	return uint8(r>>8) == want.R && uint8(g>>8) == want.G && uint8(b>>8) == want.B
}

func TestSlotsInsideCanvas(t *testing.T) {
	canvas := image.Rect(0, 0, models.CanvasWidth, models.CanvasHeight)
	for i, s := range Slots {
		if !s.Rect().In(canvas) {
			t.Errorf("slot %d %v is outside the canvas", i+1, s.Rect())
		}
		for j := i + 1; j < len(Slots); j++ {
			if s.Rect().Overlaps(Slots[j].Rect()) {
				t.Errorf("slots %d and %d overlap", i+1, j+1)
			}
		}
	}
}

func TestCompose_PlacesPhotosInOrder(t *testing.T) {
	c, objects := setup(t)

	keys := []string{"photos/red.png", "photos/blue.png", "photos/garbage.png", "photos/missing.png"}
	data, err := c.Compose(context.Background(), keys, "frames/f.png")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	img := decodeComposite(t, data)

	x, y := slotCenter(0)
	if !sameRGB(img.At(x, y), red) {
		t.Errorf("slot 1 = %v, want red", img.At(x, y))
	}
	x, y = slotCenter(1)
	if !sameRGB(img.At(x, y), blue) {
		t.Errorf("slot 2 = %v, want blue", img.At(x, y))
	}
	// Unreadable photos leave their slots empty.
	for _, i := range []int{2, 3} {
		x, y = slotCenter(i)
		if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
			t.Errorf("slot %d should be empty, got %v", i+1, img.At(x, y))
		}
	}
	// Frame is drawn over the photos.
	if !sameRGB(img.At(10, 10), color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("frame band = %v, want white", img.At(10, 10))
	}

	if objects.readCount("photos/missing.png") != 1 {
		t.Error("missing photo should have been attempted once")
	}
}

func TestCompose_IgnoresPhotosBeyondSlots(t *testing.T) {
	c, objects := setup(t)

	keys := make([]string, 0, len(Slots)+2)
	for i := 0; i < len(Slots); i++ {
		keys = append(keys, "photos/red.png")
	}
	keys = append(keys, "photos/blue.png", "photos/blue.png")

	data, err := c.Compose(context.Background(), keys, "frames/f.png")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	img := decodeComposite(t, data)
	for i := range Slots {
		x, y := slotCenter(i)
		if !sameRGB(img.At(x, y), red) {
			t.Errorf("slot %d = %v, want red", i+1, img.At(x, y))
		}
	}
	if objects.readCount("photos/blue.png") != 0 {
		t.Error("photos beyond the last slot should not be read")
	}
}

func TestCompose_FrameErrors(t *testing.T) {
	c, objects := setup(t)
	objects.data["frames/broken.png"] = []byte("nope")

	if _, err := c.Compose(context.Background(), []string{"photos/red.png"}, "frames/gone.png"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing frame error = %v, want os.ErrNotExist", err)
	}
	if _, err := c.Compose(context.Background(), []string{"photos/red.png"}, "frames/broken.png"); !errors.Is(err, ErrUndecodable) {
		t.Errorf("broken frame error = %v, want ErrUndecodable", err)
	}
}

func TestLoadFrame_CachesAndScales(t *testing.T) {
	c, objects := setup(t)
	objects.data["frames/small.png"] = encodePNG(t, solid(10, 14, blue))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		img, err := c.loadFrame(ctx, "frames/small.png")
		if err != nil {
			t.Fatalf("loadFrame: %v", err)
		}
		if b := img.Bounds(); b.Dx() != models.CanvasWidth || b.Dy() != models.CanvasHeight {
			t.Fatalf("frame scaled to %dx%d", b.Dx(), b.Dy())
		}
	}
	if n := objects.readCount("frames/small.png"); n != 1 {
		t.Errorf("frame read %d times, want 1", n)
	}
}

func TestCompose_Canceled(t *testing.T) {
	c, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Compose(ctx, []string{"photos/red.png"}, "frames/f.png"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
