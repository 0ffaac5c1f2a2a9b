// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package mailer delivers finished photos to customers by email.
//
// Two transports exist:
//   - SMTP: STARTTLS and PLAIN auth, multipart/mixed with the PNG attached,
//     behind a circuit breaker and an outbound rate limiter
//   - Log: used when SMTP is not configured; records the request in a log
//     file and reports success
package mailer

import (
	"context"

	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/models"
)

// AttachmentName is the filename customers see on the attached photo.
const AttachmentName = "snapbooth-photo.png"

// Sender delivers a photo email.
type Sender interface {
	Send(ctx context.Context, msg models.PhotoEmail) error
	Transport() string
}

// New returns the SMTP transport when cfg is complete, otherwise the log
// transport writing to cfg.FallbackLog.
func New(cfg config.SMTPConfig) Sender {
	if cfg.Configured() {
		return NewSMTP(cfg)
	}
	logging.Warn().Str("log", cfg.FallbackLog).Msg("SMTP is not configured; photo emails will be logged instead of sent")
	return NewLog(cfg.FallbackLog)
}
