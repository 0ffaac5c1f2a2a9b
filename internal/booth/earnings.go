// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/snapbooth/internal/models"
)

// chartDays is the length of the daily histogram in the earnings report.
const chartDays = 30

// Earnings reports sessions and revenue since the start of period, plus a
// daily session histogram for the trailing 30 days. An empty period means
// all time.
func (s *Service) Earnings(ctx context.Context, period string) (*models.EarningsSummary, error) {
	p := models.Period(strings.ToLower(strings.TrimSpace(period)))
	if p == "" {
		p = models.PeriodAll
	}
	if !p.Valid() {
		return nil, validationf("period must be one of: day, month, year, all")
	}

	now := s.now().In(s.loc)
	since := periodStart(p, now)

	total, err := s.store.CountSessionsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	chart, err := s.dailyChart(ctx, now)
	if err != nil {
		return nil, err
	}

	return &models.EarningsSummary{
		Period:        p,
		Since:         since,
		TotalSessions: total,
		TotalEarnings: int64(total) * s.cfg.SessionRate,
		Rate:          s.cfg.SessionRate,
		Currency:      s.cfg.Currency,
		ChartData:     chart,
	}, nil
}

// periodStart returns the local start of the period containing now, or nil
// for all time.
func periodStart(p models.Period, now time.Time) *time.Time {
	var start time.Time
	switch p {
	case models.PeriodDay:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case models.PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case models.PeriodYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return nil
	}
	return &start
}

// dailyChart returns one entry per local calendar day, oldest first, ending
// today. Days without sessions are reported as zero. Sessions are bucketed
// with the offset in effect at their own creation time, so a daylight saving
// change inside the window does not shift them across midnight.
func (s *Service) dailyChart(ctx context.Context, now time.Time) ([]models.DailyCount, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := today.AddDate(0, 0, -(chartDays - 1))

	minutes, err := s.store.SessionCountsByMinute(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to load session counts: %w", err)
	}
	counts := make(map[string]int)
	for minute, n := range minutes {
		counts[minute.In(now.Location()).Format("2006-01-02")] += n
	}

	chart := make([]models.DailyCount, 0, chartDays)
	for d := from; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		chart = append(chart, models.DailyCount{Date: key, Count: counts[key]})
	}
	return chart, nil
}
