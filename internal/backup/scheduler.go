// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package backup

import (
	"context"
	"time"

	"github.com/tomtom215/snapbooth/internal/logging"
)

// Serve implements suture.Service. Without an interval it only waits for
// shutdown; manual backups still work.
func (m *Manager) Serve(ctx context.Context) error {
	if m.cfg.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	next := m.nextRun(m.now())
	m.setSchedule(nil, next)
	logging.Info().Time("next_backup", next).Msg("Backup scheduler started")

	timer := time.NewTimer(next.Sub(m.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if _, err := m.create(ctx, "", TriggerScheduled, "Scheduled backup"); err != nil {
				logging.Error().Err(err).Msg("Scheduled backup failed")
			}
			if _, err := m.ApplyRetention(); err != nil {
				logging.Error().Err(err).Msg("Backup retention failed")
			}

			ran := m.now()
			next = m.nextRun(ran)
			m.setSchedule(&ran, next)
			timer.Reset(next.Sub(ran))
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (m *Manager) String() string {
	return "backup-scheduler"
}

// nextRun returns the next scheduled backup after now. Intervals of a day
// or more run at the preferred hour.
func (m *Manager) nextRun(now time.Time) time.Time {
	interval := m.cfg.Interval
	if interval < 24*time.Hour {
		return now.Add(interval)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), m.cfg.PreferredHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	if days := int(interval / (24 * time.Hour)); days > 1 {
		next = next.AddDate(0, 0, days-1)
	}
	return next
}

func (m *Manager) setSchedule(last *time.Time, next time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if last != nil {
		l := last.UTC()
		m.metadata.LastScheduled = &l
	}
	n := next.UTC()
	m.metadata.NextScheduled = &n
	if err := m.saveMetadataLocked(); err != nil {
		logging.Warn().Err(err).Msg("Failed to save backup schedule")
	}
}
