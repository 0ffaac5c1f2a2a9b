// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/models"
)

// testDBSemaphore serializes DuckDB use across tests; too many concurrent
// CGO calls can hang under resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates a new in-memory test database.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := New(&config.DatabaseConfig{
		Path:                   ":memory:",
		MaxMemory:              "1GB",
		Threads:                2,
		PreserveInsertionOrder: true,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		closeQuietly(db)
	})
	return db
}

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func checkIntEqual(t *testing.T, name string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", name, got, want)
	}
}

func checkStringEqual(t *testing.T, name, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", name, got, want)
	}
}

func insertTestCode(t *testing.T, db *DB, code string, expiredAt *time.Time) {
	t.Helper()
	checkNoError(t, db.InsertCode(context.Background(), &models.SessionCode{
		Code:      code,
		Status:    models.CodeActive,
		ExpiredAt: expiredAt,
		CreatedAt: time.Now().UTC(),
	}))
}

func insertTestSession(t *testing.T, db *DB, code string, createdAt time.Time) *models.Session {
	t.Helper()
	timer := createdAt.Add(2 * time.Minute)
	s := &models.Session{
		ID:             uuid.New().String(),
		Code:           code,
		Status:         models.SessionActive,
		CreatedAt:      createdAt,
		TimerExpiresAt: &timer,
	}
	checkNoError(t, db.InsertSession(context.Background(), s))
	return s
}

func TestNew_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"session_codes", "sessions", "photos", "frames", "users"} {
		var n int
		err := db.Conn().QueryRow(`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, table).Scan(&n)
		checkNoError(t, err)
		checkIntEqual(t, table, n, 1)
	}
	checkNoError(t, db.Ping(context.Background()))
}

func TestCodes_InsertGetExists(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	insertTestCode(t, db, "AB12CD34", &exp)

	exists, err := db.CodeExists(ctx, "AB12CD34")
	checkNoError(t, err)
	if !exists {
		t.Error("expected code to exist")
	}

	got, err := db.GetCode(ctx, "AB12CD34")
	checkNoError(t, err)
	if got == nil {
		t.Fatal("expected code record")
	}
	checkStringEqual(t, "status", string(got.Status), string(models.CodeActive))
	if got.ExpiredAt == nil || !got.ExpiredAt.Equal(exp) {
		t.Errorf("ExpiredAt = %v, want %v", got.ExpiredAt, exp)
	}
	if got.UsedAt != nil {
		t.Errorf("UsedAt = %v, want nil", got.UsedAt)
	}

	missing, err := db.GetCode(ctx, "ZZZZZZZZ")
	checkNoError(t, err)
	if missing != nil {
		t.Errorf("expected nil for unknown code, got %+v", missing)
	}

	err = db.InsertCode(ctx, &models.SessionCode{Code: "AB12CD34", Status: models.CodeActive, CreatedAt: time.Now()})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate insert error = %v, want ErrDuplicate", err)
	}
}

func TestClaimCode(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	future := now.Add(time.Hour)
	past := now.Add(-time.Second)
	insertTestCode(t, db, "ACTIVE01", &future)
	insertTestCode(t, db, "EXPIRED1", &past)
	insertTestCode(t, db, "FOREVER1", nil)

	ok, err := db.ClaimCode(ctx, "ACTIVE01", now)
	checkNoError(t, err)
	if !ok {
		t.Error("first claim should succeed")
	}

	ok, err = db.ClaimCode(ctx, "ACTIVE01", now.Add(time.Second))
	checkNoError(t, err)
	if ok {
		t.Error("second claim should not succeed")
	}

	// usedAt keeps the first claim's timestamp
	c, err := db.GetCode(ctx, "ACTIVE01")
	checkNoError(t, err)
	checkStringEqual(t, "status", string(c.Status), string(models.CodeUsed))
	if c.UsedAt == nil || c.UsedAt.Sub(now).Abs() > time.Millisecond {
		t.Errorf("UsedAt = %v, want ~%v", c.UsedAt, now)
	}

	ok, err = db.ClaimCode(ctx, "EXPIRED1", now)
	checkNoError(t, err)
	if ok {
		t.Error("expired code must not be claimable")
	}
	c, err = db.GetCode(ctx, "EXPIRED1")
	checkNoError(t, err)
	checkStringEqual(t, "expired status stays", string(c.Status), string(models.CodeActive))

	ok, err = db.ClaimCode(ctx, "FOREVER1", now)
	checkNoError(t, err)
	if !ok {
		t.Error("code without expiry should be claimable")
	}

	ok, err = db.ClaimCode(ctx, "UNKNOWN1", now)
	checkNoError(t, err)
	if ok {
		t.Error("unknown code must not be claimable")
	}
}

func TestClaimCode_ConcurrentSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	insertTestCode(t, db, "RACE0001", nil)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := db.ClaimCode(ctx, "RACE0001", time.Now())
			if err != nil {
				t.Errorf("claim error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	checkIntEqual(t, "winners", wins, 1)
}

func TestSessions_InsertAndLookup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertTestCode(t, db, "SESS0001", nil)
	s := insertTestSession(t, db, "SESS0001", time.Now().UTC())

	byID, err := db.GetSession(ctx, s.ID)
	checkNoError(t, err)
	if byID == nil {
		t.Fatal("expected session by id")
	}
	checkStringEqual(t, "code", byID.Code, "SESS0001")
	checkIntEqual(t, "photo_count", byID.PhotoCount, 0)

	byCode, err := db.GetSessionByCode(ctx, "SESS0001")
	checkNoError(t, err)
	if byCode == nil || byCode.ID != s.ID {
		t.Fatalf("GetSessionByCode = %+v, want id %s", byCode, s.ID)
	}

	dup := &models.Session{ID: uuid.New().String(), Code: "SESS0001", Status: models.SessionActive,
		CreatedAt: time.Now()}
	if err := db.InsertSession(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second session for code: err = %v, want ErrDuplicate", err)
	}

	updated, err := db.UpdateSessionStatus(ctx, s.ID, models.SessionCompleted)
	checkNoError(t, err)
	if !updated {
		t.Error("expected status update")
	}
	updated, err = db.UpdateSessionStatus(ctx, "missing", models.SessionCompleted)
	checkNoError(t, err)
	if updated {
		t.Error("unknown session should not update")
	}

	none, err := db.GetSession(ctx, "missing")
	checkNoError(t, err)
	if none != nil {
		t.Error("expected nil for unknown session")
	}
}

func TestStartSessionTimer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertTestCode(t, db, "PRESET01", nil)
	s := &models.Session{ID: uuid.New().String(), Code: "PRESET01", Status: models.SessionActive,
		CreatedAt: time.Now().UTC()}
	checkNoError(t, db.InsertSession(ctx, s))

	got, err := db.GetSession(ctx, s.ID)
	checkNoError(t, err)
	if got.TimerExpiresAt != nil || got.UsedAt != nil {
		t.Fatalf("pre-created session should have no timer, got %+v", got)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	started, err := db.StartSessionTimer(ctx, s.ID, now, now.Add(2*time.Minute))
	checkNoError(t, err)
	if !started {
		t.Fatal("expected timer to start")
	}

	started, err = db.StartSessionTimer(ctx, s.ID, now.Add(time.Hour), now.Add(time.Hour))
	checkNoError(t, err)
	if started {
		t.Error("running timer must not be restarted")
	}

	got, err = db.GetSession(ctx, s.ID)
	checkNoError(t, err)
	if got.TimerExpiresAt == nil || !got.TimerExpiresAt.Equal(now.Add(2*time.Minute)) {
		t.Errorf("timer_expires_at = %v, want %v", got.TimerExpiresAt, now.Add(2*time.Minute))
	}
}

func TestClaimCodeWithSession(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertTestCode(t, db, "TXCLAIM1", nil)
	newSession := func(code string) *models.Session {
		timer := now.Add(2 * time.Minute)
		return &models.Session{ID: uuid.New().String(), Code: code, Status: models.SessionActive,
			CreatedAt: now, UsedAt: &now, TimerExpiresAt: &timer}
	}

	first := newSession("TXCLAIM1")
	ok, err := db.ClaimCodeWithSession(ctx, first, now)
	checkNoError(t, err)
	if !ok {
		t.Fatal("first claim should succeed")
	}

	code, err := db.GetCode(ctx, "TXCLAIM1")
	checkNoError(t, err)
	if code.Status != models.CodeUsed {
		t.Errorf("status = %s, want USED", code.Status)
	}

	ok, err = db.ClaimCodeWithSession(ctx, newSession("TXCLAIM1"), now)
	checkNoError(t, err)
	if ok {
		t.Error("second claim should lose")
	}

	// Unknown codes leave no session behind.
	ok, err = db.ClaimCodeWithSession(ctx, newSession("NOPE0001"), now)
	checkNoError(t, err)
	if ok {
		t.Error("unknown code should not claim")
	}
	orphan, err := db.GetSessionByCode(ctx, "NOPE0001")
	checkNoError(t, err)
	if orphan != nil {
		t.Error("failed claim must not insert a session")
	}
}

func TestListSessions_Pagination(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	codes := []string{"PAGE0001", "PAGE0002", "PAGE0003"}
	for i, code := range codes {
		insertTestCode(t, db, code, nil)
		insertTestSession(t, db, code, base.Add(time.Duration(i)*time.Minute))
	}

	page, total, err := db.ListSessions(ctx, 2, 0)
	checkNoError(t, err)
	checkIntEqual(t, "total", total, 3)
	checkIntEqual(t, "page len", len(page), 2)
	checkStringEqual(t, "newest first", page[0].Code, "PAGE0003")

	page, _, err = db.ListSessions(ctx, 2, 2)
	checkNoError(t, err)
	checkIntEqual(t, "last page len", len(page), 1)
	checkStringEqual(t, "oldest last", page[0].Code, "PAGE0001")
}

func newTestPhoto(sessionID string) *models.Photo {
	id := uuid.New().String()
	return &models.Photo{
		ID:          id,
		SessionID:   sessionID,
		URL:         "/files/photos/" + id + ".png",
		StorageKey:  "photos/" + id + ".png",
		ContentType: "image/png",
		Size:        1024,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestPhotos_OrderIsMaxPlusOne(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertTestCode(t, db, "PHOTO001", nil)
	s := insertTestSession(t, db, "PHOTO001", time.Now().UTC())

	var ids []string
	for i := 1; i <= 3; i++ {
		p := newTestPhoto(s.ID)
		checkNoError(t, db.InsertPhoto(ctx, p))
		checkIntEqual(t, "order", p.Order, i)
		ids = append(ids, p.ID)
	}

	// Deleting the middle photo leaves a gap; the next order is still max+1.
	deleted, err := db.DeletePhoto(ctx, ids[1])
	checkNoError(t, err)
	if !deleted {
		t.Error("expected photo delete")
	}
	p := newTestPhoto(s.ID)
	checkNoError(t, db.InsertPhoto(ctx, p))
	checkIntEqual(t, "order after gap", p.Order, 4)

	photos, err := db.ListPhotos(ctx, s.ID)
	checkNoError(t, err)
	checkIntEqual(t, "photos", len(photos), 3)
	for i := 1; i < len(photos); i++ {
		if photos[i].Order <= photos[i-1].Order {
			t.Errorf("orders not increasing: %d then %d", photos[i-1].Order, photos[i].Order)
		}
	}

	sess, err := db.GetSession(ctx, s.ID)
	checkNoError(t, err)
	checkIntEqual(t, "photo_count", sess.PhotoCount, 3)

	// Orders are per session.
	insertTestCode(t, db, "PHOTO002", nil)
	other := insertTestSession(t, db, "PHOTO002", time.Now().UTC())
	op := newTestPhoto(other.ID)
	checkNoError(t, db.InsertPhoto(ctx, op))
	checkIntEqual(t, "other session order", op.Order, 1)
}

func TestPhotos_GetAndBulkDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertTestCode(t, db, "BULK0001", nil)
	s := insertTestSession(t, db, "BULK0001", time.Now().UTC())
	first := newTestPhoto(s.ID)
	checkNoError(t, db.InsertPhoto(ctx, first))
	checkNoError(t, db.InsertPhoto(ctx, newTestPhoto(s.ID)))

	got, err := db.GetPhoto(ctx, first.ID)
	checkNoError(t, err)
	if got == nil || got.StorageKey != first.StorageKey {
		t.Fatalf("GetPhoto = %+v", got)
	}

	deleted, err := db.DeleteSessionPhotos(ctx, s.ID)
	checkNoError(t, err)
	checkIntEqual(t, "deleted", len(deleted), 2)

	remaining, err := db.ListPhotos(ctx, s.ID)
	checkNoError(t, err)
	checkIntEqual(t, "remaining", len(remaining), 0)

	none, err := db.GetPhoto(ctx, first.ID)
	checkNoError(t, err)
	if none != nil {
		t.Error("expected photo to be gone")
	}
}

func TestFrames_CRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	f := &models.Frame{
		ID: "frame-1", Name: "Gold", URL: "/files/frames/frame-1.png", StorageKey: "frames/frame-1.png",
		Filename: "gold.png", ContentType: "image/png", Size: 2048, Width: 2635, Height: 3715,
		CreatedAt: time.Now().UTC(),
	}
	checkNoError(t, db.InsertFrame(ctx, f))

	got, err := db.GetFrame(ctx, "frame-1")
	checkNoError(t, err)
	if got == nil || got.Width != 2635 || got.Height != 3715 {
		t.Fatalf("GetFrame = %+v", got)
	}

	f.Name = "Silver"
	f.StorageKey = "frames/frame-1b.png"
	ok, err := db.UpdateFrame(ctx, f)
	checkNoError(t, err)
	if !ok {
		t.Error("expected update")
	}

	list, err := db.ListFrames(ctx)
	checkNoError(t, err)
	checkIntEqual(t, "frames", len(list), 1)
	checkStringEqual(t, "name", list[0].Name, "Silver")

	ok, err = db.DeleteFrame(ctx, "frame-1")
	checkNoError(t, err)
	if !ok {
		t.Error("expected delete")
	}
	ok, err = db.DeleteFrame(ctx, "frame-1")
	checkNoError(t, err)
	if ok {
		t.Error("second delete should report not found")
	}
}

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	n, err := db.CountUsers(ctx)
	checkNoError(t, err)
	checkIntEqual(t, "users", n, 0)

	u := &models.User{ID: uuid.New().String(), Username: "admin", PasswordHash: "hash", Role: models.RoleAdmin, CreatedAt: time.Now()}
	checkNoError(t, db.InsertUser(ctx, u))

	dup := *u
	dup.ID = uuid.New().String()
	if err := db.InsertUser(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate username err = %v, want ErrDuplicate", err)
	}

	byName, err := db.GetUserByUsername(ctx, "admin")
	checkNoError(t, err)
	if byName == nil || byName.ID != u.ID {
		t.Fatalf("GetUserByUsername = %+v", byName)
	}
	byID, err := db.GetUserByID(ctx, u.ID)
	checkNoError(t, err)
	checkStringEqual(t, "role", byID.Role, models.RoleAdmin)

	n, err = db.CountUsers(ctx)
	checkNoError(t, err)
	checkIntEqual(t, "users", n, 1)
}

func TestEarningsQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	stamps := []time.Time{
		today.Add(time.Hour),
		today.Add(2 * time.Hour),
		today.Add(3 * time.Hour),
		today.Add(-24 * time.Hour).Add(time.Hour),
		today.Add(-40 * 24 * time.Hour),
	}
	for i, ts := range stamps {
		code := "EARN000" + string(rune('1'+i))
		insertTestCode(t, db, code, nil)
		insertTestSession(t, db, code, ts)
	}

	all, err := db.CountSessionsSince(ctx, nil)
	checkNoError(t, err)
	checkIntEqual(t, "all", all, 5)

	day, err := db.CountSessionsSince(ctx, &today)
	checkNoError(t, err)
	checkIntEqual(t, "today", day, 3)

	counts, err := db.SessionCountsByMinute(ctx, today.Add(-29*24*time.Hour))
	checkNoError(t, err)
	checkIntEqual(t, "minutes", len(counts), 4)
	total := 0
	for minute, n := range counts {
		if minute.Before(today.Add(-29 * 24 * time.Hour)) {
			t.Errorf("minute %v is before the window", minute)
		}
		total += n
	}
	checkIntEqual(t, "total", total, 4)
	checkIntEqual(t, "first hour today", counts[today.Add(time.Hour)], 1)
}

func TestExportTo(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertTestCode(t, db, "EXPORT01", nil)
	insertTestSession(t, db, "EXPORT01", time.Now().UTC())

	counts, err := db.TableCounts(ctx)
	checkNoError(t, err)
	if counts["session_codes"] != 1 || counts["sessions"] != 1 || counts["photos"] != 0 {
		t.Errorf("TableCounts = %v", counts)
	}

	dir := filepath.Join(t.TempDir(), "export")
	checkNoError(t, db.ExportTo(ctx, dir))

	for _, name := range []string{"schema.sql", "load.sql"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
