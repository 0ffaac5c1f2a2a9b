// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package models

import (
	"testing"
	"time"
)

func TestSessionCode_EffectiveStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		code SessionCode
		want CodeStatus
	}{
		{"active unexpired", SessionCode{Status: CodeActive, ExpiredAt: &future}, CodeActive},
		{"active past expiry", SessionCode{Status: CodeActive, ExpiredAt: &past}, CodeExpired},
		{"active never expires", SessionCode{Status: CodeActive}, CodeActive},
		{"used past expiry stays used", SessionCode{Status: CodeUsed, ExpiredAt: &past}, CodeUsed},
		{"expiry instant is still valid", SessionCode{Status: CodeActive, ExpiredAt: &now}, CodeActive},
	}

	for _, tt := range tests {
		if got := tt.code.EffectiveStatus(now); got != tt.want {
			t.Errorf("%s: EffectiveStatus = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestPeriod_Valid(t *testing.T) {
	t.Parallel()

	for _, p := range []Period{PeriodDay, PeriodMonth, PeriodYear, PeriodAll} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	for _, p := range []Period{"", "week", "DAY"} {
		if p.Valid() {
			t.Errorf("%q should be invalid", p)
		}
	}
}
