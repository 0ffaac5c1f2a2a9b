// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package booth

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/snapbooth/internal/models"
)

func TestCreateSession(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	detail, err := env.svc.CreateSession(ctx)
	checkNoError(t, err)
	if detail.CodeInfo == nil || detail.CodeInfo.Code != detail.Code {
		t.Fatalf("code info = %+v, want code %s", detail.CodeInfo, detail.Code)
	}
	if detail.CodeInfo.Status != models.CodeActive {
		t.Errorf("code status = %s, want ACTIVE", detail.CodeInfo.Status)
	}
	if detail.UsedAt != nil {
		t.Error("operator session should not be used yet")
	}

	got, err := env.svc.GetSession(ctx, detail.ID)
	checkNoError(t, err)
	if got.Code != detail.Code || len(got.Photos) != 0 {
		t.Errorf("GetSession = %+v", got)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	env := setupTestService(t)
	_, err := env.svc.GetSession(context.Background(), "00000000-0000-0000-0000-000000000000")
	checkErrorIs(t, err, ErrSessionNotFound)

	_, err = env.svc.GetSession(context.Background(), "")
	checkErrorIs(t, err, ErrValidation)
}

func TestGetSession_ReportsEffectiveCodeStatus(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	detail, err := env.svc.CreateSession(ctx)
	checkNoError(t, err)

	env.clock.Advance(2 * time.Hour)
	got, err := env.svc.GetSession(ctx, detail.ID)
	checkNoError(t, err)
	if got.CodeInfo.Status != models.CodeExpired {
		t.Errorf("code status = %s, want EXPIRED", got.CodeInfo.Status)
	}

	stored, err := env.db.GetCode(ctx, detail.Code)
	checkNoError(t, err)
	if stored.Status != models.CodeActive {
		t.Error("expiry must not be written back")
	}
}

func TestListSessions(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 12; i++ {
		d, err := env.svc.CreateSession(ctx)
		checkNoError(t, err)
		ids = append(ids, d.ID)
		env.clock.Advance(time.Minute)
	}

	page, err := env.svc.ListSessions(ctx, 1, 0)
	checkNoError(t, err)
	if page.PageSize != 10 || len(page.Sessions) != 10 {
		t.Fatalf("page size = %d, sessions = %d, want 10/10", page.PageSize, len(page.Sessions))
	}
	if page.Total != 12 || page.TotalPages != 2 {
		t.Errorf("total = %d pages = %d, want 12/2", page.Total, page.TotalPages)
	}
	if page.Sessions[0].ID != ids[11] {
		t.Error("sessions should be newest first")
	}

	page, err = env.svc.ListSessions(ctx, 2, 10)
	checkNoError(t, err)
	if len(page.Sessions) != 2 || page.Sessions[1].ID != ids[0] {
		t.Errorf("second page = %d sessions", len(page.Sessions))
	}

	page, err = env.svc.ListSessions(ctx, -3, 1000)
	checkNoError(t, err)
	if page.Page != 1 || page.PageSize != 100 {
		t.Errorf("clamped page = %d size = %d, want 1/100", page.Page, page.PageSize)
	}
}

func TestTimer(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	insertCode(t, env, "TIMER001", models.CodeActive, nil)

	res, err := env.svc.Claim(ctx, "TIMER001")
	checkNoError(t, err)
	id := res.Session.ID

	timer, err := env.svc.Timer(ctx, id)
	checkNoError(t, err)
	if !timer.Started || timer.RemainingSeconds != 120 || timer.Expired {
		t.Errorf("fresh timer = %+v", timer)
	}

	env.clock.Advance(45*time.Second + 500*time.Millisecond)
	timer, err = env.svc.Timer(ctx, id)
	checkNoError(t, err)
	if timer.RemainingSeconds != 75 {
		t.Errorf("remaining = %d, want 75 (rounded up)", timer.RemainingSeconds)
	}

	env.clock.Advance(2 * time.Minute)
	timer, err = env.svc.Timer(ctx, id)
	checkNoError(t, err)
	if !timer.Expired || timer.RemainingSeconds != 0 {
		t.Errorf("expired timer = %+v", timer)
	}

	_, err = env.svc.Timer(ctx, "missing")
	checkErrorIs(t, err, ErrSessionNotFound)
}

func TestTimer_NotStarted(t *testing.T) {
	s := &models.Session{ID: "s1"}
	timer := sessionTimer(s, 2*time.Minute, time.Now())
	if timer.Started || timer.Expired || timer.RemainingSeconds != 120 || timer.ExpiresAt != nil {
		t.Errorf("unstarted timer = %+v", timer)
	}
}
