// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"io"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp" // register decoder
)

// Accepted upload content types and their file extensions.
var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// upload is a fully buffered image upload.
type upload struct {
	data        []byte
	contentType string
	ext         string
}

// readImageUpload buffers r, enforcing maxBytes and the accepted content
// types. declared is the client's Content-Type; the sniffed type of the
// bytes must agree with it.
func readImageUpload(r io.Reader, declared string, maxBytes int64) (*upload, error) {
	declared = strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	ext, ok := imageExtensions[declared]
	if !ok {
		return nil, validationf("invalid file type %q: only JPEG, PNG and WebP images are allowed", declared)
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, validationf("file too large: maximum size is %d MB", maxBytes/(1024*1024))
	}
	if len(data) == 0 {
		return nil, validationf("file is empty")
	}
	if sniffed := http.DetectContentType(data); sniffed != declared {
		return nil, validationf("file content is %s, not %s", sniffed, declared)
	}
	return &upload{data: data, contentType: declared, ext: ext}, nil
}

// imageSize decodes only the header of an image.
func imageSize(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, validationf("file is not a readable image")
	}
	return cfg.Width, cfg.Height, nil
}

// toPNG decodes any registered image format and re-encodes it as PNG.
func toPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, validationf("file is not a readable image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
