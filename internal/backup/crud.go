// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package backup

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
)

// CreateBackup writes a new archive. An empty typ selects DefaultType.
// A failed attempt is recorded and returned together with the error.
func (m *Manager) CreateBackup(ctx context.Context, typ Type, notes string) (*Backup, error) {
	return m.create(ctx, typ, TriggerManual, notes)
}

func (m *Manager) create(ctx context.Context, typ Type, trigger Trigger, notes string) (*Backup, error) {
	if !m.cfg.Enabled {
		return nil, ErrDisabled
	}
	if typ == "" {
		typ = m.DefaultType()
	}
	if !typ.Valid() {
		return nil, ErrInvalidType
	}
	if typ == TypeFull && m.mediaDir == "" {
		return nil, fmt.Errorf("%w: full backups need local media storage", ErrInvalidType)
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()

	start := m.now()
	id := uuid.NewString()
	b := &Backup{
		ID:        id,
		Type:      typ,
		Status:    StatusInProgress,
		Trigger:   trigger,
		Notes:     notes,
		CreatedAt: start.UTC(),
		Filename:  fmt.Sprintf("backup-%s-%s-%s.tar.gz", typ, start.UTC().Format("20060102-150405"), id[:8]),
		Files:     make([]File, 0),
	}
	m.saveBackup(cloneBackup(b))

	if counts, err := m.db.TableCounts(ctx); err == nil {
		b.RecordCount = counts
	} else {
		logging.Warn().Err(err).Msg("Failed to count records for backup")
	}

	if err := m.writeArchive(ctx, b); err != nil {
		_ = os.Remove(m.archivePath(b)) //nolint:errcheck // partial archive cleanup
		return m.fail(b, start, err)
	}

	checksum, size, err := fileChecksum(m.archivePath(b))
	if err != nil {
		return m.fail(b, start, fmt.Errorf("failed to checksum archive: %w", err))
	}
	b.Checksum = checksum
	b.FileSize = size
	b.Status = StatusCompleted
	m.finish(b, start)

	metrics.BackupsCreated.WithLabelValues(string(trigger), string(StatusCompleted)).Inc()
	metrics.BackupDuration.Observe(float64(b.DurationMS) / 1000)
	logging.Info().
		Str("backup_id", b.ID).
		Str("type", string(b.Type)).
		Str("trigger", string(trigger)).
		Int64("size", b.FileSize).
		Int("files", len(b.Files)).
		Msg("Backup completed")

	if m.onComplete != nil {
		m.onComplete(cloneBackup(b))
	}
	return b, nil
}

func (m *Manager) finish(b *Backup, start time.Time) {
	completed := m.now().UTC()
	b.CompletedAt = &completed
	b.DurationMS = completed.Sub(start).Milliseconds()
	m.saveBackup(cloneBackup(b))
}

func (m *Manager) fail(b *Backup, start time.Time, err error) (*Backup, error) {
	b.Status = StatusFailed
	b.Error = err.Error()
	b.Files = nil
	m.finish(b, start)
	metrics.BackupsCreated.WithLabelValues(string(b.Trigger), string(StatusFailed)).Inc()
	logging.Error().Err(err).Str("backup_id", b.ID).Msg("Backup failed")
	return b, fmt.Errorf("backup %s failed: %w", b.ID, err)
}

// ListBackups returns matching backups, newest first.
func (m *Manager) ListBackups(opts ListOptions) []*Backup {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Backup, 0, len(m.metadata.Backups))
	for _, b := range m.metadata.Backups {
		if opts.Type != "" && b.Type != opts.Type {
			continue
		}
		if opts.Status != "" && b.Status != opts.Status {
			continue
		}
		out = append(out, cloneBackup(b))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if opts.Offset >= len(out) {
		return []*Backup{}
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out
}

// GetBackup returns the backup with id.
func (m *Manager) GetBackup(id string) (*Backup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, _ := m.findLocked(id)
	if b == nil {
		return nil, ErrNotFound
	}
	return cloneBackup(b), nil
}

// OpenArchive opens a completed archive for reading.
func (m *Manager) OpenArchive(id string) (*os.File, *Backup, error) {
	b, err := m.GetBackup(id)
	if err != nil {
		return nil, nil, err
	}
	if b.Status != StatusCompleted {
		return nil, nil, fmt.Errorf("%w: backup %s is %s", ErrNotFound, id, b.Status)
	}
	f, err := os.Open(m.archivePath(b)) //nolint:gosec // G304: filename is generated by the manager
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: archive file missing", ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return f, b, nil
}

// DeleteBackup removes the archive and its record.
func (m *Manager) DeleteBackup(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

func (m *Manager) deleteLocked(id string) error {
	b, idx := m.findLocked(id)
	if b == nil {
		return ErrNotFound
	}
	if b.Status == StatusInProgress {
		return fmt.Errorf("backup %s is still being written", id)
	}
	if err := os.Remove(m.archivePath(b)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup file: %w", err)
	}
	m.metadata.Backups = append(m.metadata.Backups[:idx], m.metadata.Backups[idx+1:]...)
	return m.saveMetadataLocked()
}

// Verify recomputes the archive checksum. A mismatch or missing file marks
// the backup corrupted; a later match restores it to completed.
func (m *Manager) Verify(id string) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, _ := m.findLocked(id)
	if b == nil {
		return nil, ErrNotFound
	}
	if b.Status != StatusCompleted && b.Status != StatusCorrupted {
		return nil, fmt.Errorf("backup %s is %s and cannot be verified", id, b.Status)
	}

	checksum, _, err := fileChecksum(m.archivePath(b))
	switch {
	case err != nil:
		b.Status = StatusCorrupted
		b.Error = fmt.Sprintf("archive unreadable: %v", err)
	case checksum != b.Checksum:
		b.Status = StatusCorrupted
		b.Error = "checksum mismatch"
	default:
		b.Status = StatusCompleted
		b.Error = ""
	}
	if err := m.saveMetadataLocked(); err != nil {
		return nil, fmt.Errorf("failed to save backup metadata: %w", err)
	}
	if b.Status == StatusCorrupted {
		logging.Warn().Str("backup_id", id).Str("reason", b.Error).Msg("Backup failed verification")
	}
	return cloneBackup(b), nil
}

// GetStats summarises stored backups.
func (m *Manager) GetStats() *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{
		CountByStatus: make(map[Status]int),
		NextScheduled: m.metadata.NextScheduled,
	}
	for _, b := range m.metadata.Backups {
		stats.TotalCount++
		stats.TotalSizeBytes += b.FileSize
		stats.CountByStatus[b.Status]++
		if b.Status == StatusCompleted && (stats.LastBackup == nil || b.CreatedAt.After(stats.LastBackup.CreatedAt)) {
			stats.LastBackup = b
		}
	}
	if stats.LastBackup != nil {
		stats.LastBackup = cloneBackup(stats.LastBackup)
	}
	return stats
}
