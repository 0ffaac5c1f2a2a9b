// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package backup

import (
	"sort"

	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/metrics"
)

// ApplyRetention deletes archives outside the retention policy and returns
// how many were removed.
//
// The newest MinCount completed backups are always kept. Older completed
// backups are removed once there are more than MaxCount or they are older
// than MaxAge. Failed and corrupted records are removed after MaxAge.
func (m *Manager) ApplyRetention() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	completed := make([]*Backup, 0, len(m.metadata.Backups))
	var expired []string
	for _, b := range m.metadata.Backups {
		switch b.Status {
		case StatusCompleted:
			completed = append(completed, b)
		case StatusFailed, StatusCorrupted:
			if m.cfg.MaxAge > 0 && now.Sub(b.CreatedAt) > m.cfg.MaxAge {
				expired = append(expired, b.ID)
			}
		}
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].CreatedAt.After(completed[j].CreatedAt)
	})
	for i, b := range completed {
		if i < m.cfg.MinCount {
			continue
		}
		tooMany := m.cfg.MaxCount > 0 && i >= m.cfg.MaxCount
		tooOld := m.cfg.MaxAge > 0 && now.Sub(b.CreatedAt) > m.cfg.MaxAge
		if tooMany || tooOld {
			expired = append(expired, b.ID)
		}
	}

	removed := 0
	for _, id := range expired {
		if err := m.deleteLocked(id); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		metrics.BackupsPruned.Add(float64(removed))
		logging.Info().Int("removed", removed).Msg("Backup retention applied")
	}
	return removed, nil
}
