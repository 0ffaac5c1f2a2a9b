// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package database

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tomtom215/snapbooth/internal/logging"
)

var (
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")

	// ErrWriteConflict is returned when a concurrent transaction touched the same row.
	ErrWriteConflict = errors.New("write conflict")
)

// classifyError maps DuckDB constraint and transaction errors onto the
// package sentinels so callers can use errors.Is.
func classifyError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Constraint Error") || strings.Contains(msg, "Duplicate key"):
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	case strings.Contains(msg, "Conflict on") || strings.Contains(msg, "write-write conflict") ||
		strings.Contains(msg, "TransactionContext Error") || strings.Contains(msg, "Transaction Error"):
		return fmt.Errorf("%s: %w: %v", op, ErrWriteConflict, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Best-effort cleanup on error paths
	}
}
