// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package mailer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
	"github.com/tomtom215/snapbooth/internal/models"
)

// Log records photo emails instead of sending them. Failing to write the
// log file does not fail the send.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewLog creates a log transport appending to path. An empty path only logs.
func NewLog(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Transport returns the metrics label for this transport.
func (l *Log) Transport() string { return "log" }

// Send logs the email and appends a line to the log file.
func (l *Log) Send(ctx context.Context, msg models.PhotoEmail) error {
	logging.Ctx(ctx).Info().
		Str("to", logging.SanitizeEmail(msg.To)).
		Str("image", msg.ImageKey).
		Int("bytes", len(msg.Image)).
		Msg("Email transport not configured; photo email recorded only")

	if l.path != "" {
		if err := l.appendEntry(msg); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("path", l.path).Msg("Failed to write email log")
		}
	}
	metrics.RecordEmail(l.Transport(), nil)
	return nil
}

func (l *Log) appendEntry(msg models.PhotoEmail) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open email log: %w", err)
	}
	_, werr := fmt.Fprintf(f, "[%s] Email to: %s, Image: %s\n", l.now().UTC().Format(time.RFC3339), msg.To, msg.ImageKey)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return werr
}
