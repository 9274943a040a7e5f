package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rxmind/go-reminder-backend/internal/domain"
)

func newReminderDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("reminder_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedMedicine creates a prescription + medicine chain for the given user and
// returns the medicine ID.
func seedMedicine(t *testing.T, db *gorm.DB, userID, name string) string {
	t.Helper()
	p, err := CreatePrescription(context.Background(), db, userID, "ocr text", "")
	if err != nil {
		t.Fatalf("CreatePrescription: %v", err)
	}
	m, err := CreateMedicine(context.Background(), db, p.ID, name, 10, [3]int{1, 0, 1}, "after food")
	if err != nil {
		t.Fatalf("CreateMedicine: %v", err)
	}
	return m.ID
}

func TestCreateReminder_Success_PersistsAndSetsFields(t *testing.T) {
	db := newReminderDB(t)
	medID := seedMedicine(t, db, "u1", "Dolo 650")

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	r, err := CreateReminder(context.Background(), db, medID, "ev-1", at, domain.SlotMorning)
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if r.ID == "" || r.Status != domain.StatusPending || r.SnoozeCount != 0 {
		t.Fatalf("unexpected Reminder fields: %+v", r)
	}

	var got domain.Reminder
	if err := db.First(&got, "id = ?", r.ID).Error; err != nil {
		t.Fatalf("load created reminder: %v", err)
	}
	if got.EventID != "ev-1" || got.Slot != domain.SlotMorning || !got.ScheduledTime.Equal(at) {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestCreateReminder_DuplicateSlotTime_ReturnsErrDuplicate(t *testing.T) {
	db := newReminderDB(t)
	medID := seedMedicine(t, db, "u1", "Dolo 650")

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if _, err := CreateReminder(context.Background(), db, medID, "ev-1", at, domain.SlotMorning); err != nil {
		t.Fatalf("first CreateReminder: %v", err)
	}
	// Same (medicine, scheduled_time, slot) under a different event id.
	if _, err := CreateReminder(context.Background(), db, medID, "ev-2", at, domain.SlotMorning); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// Same time in a different slot is a distinct occurrence.
	if _, err := CreateReminder(context.Background(), db, medID, "ev-3", at, domain.SlotEvening); err != nil {
		t.Fatalf("distinct slot should insert: %v", err)
	}
}

func TestGetReminderByEventID_PreloadsMedicine(t *testing.T) {
	db := newReminderDB(t)
	medID := seedMedicine(t, db, "u1", "Dolo 650")

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if _, err := CreateReminder(context.Background(), db, medID, "ev-1", at, domain.SlotMorning); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	r, err := GetReminderByEventID(context.Background(), db, "ev-1")
	if err != nil {
		t.Fatalf("GetReminderByEventID: %v", err)
	}
	if r.Medicine.Name != "Dolo 650" {
		t.Fatalf("expected preloaded medicine, got %+v", r.Medicine)
	}

	if _, err := GetReminderByEventID(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateReminderStatus_Missed_IncrementsSnoozeCount(t *testing.T) {
	db := newReminderDB(t)
	medID := seedMedicine(t, db, "u1", "Dolo 650")

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if _, err := CreateReminder(context.Background(), db, medID, "ev-1", at, domain.SlotMorning); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	r, err := UpdateReminderStatus(context.Background(), db, "ev-1", domain.StatusMissed, nil)
	if err != nil {
		t.Fatalf("UpdateReminderStatus: %v", err)
	}
	if r.Status != domain.StatusMissed || r.SnoozeCount != 1 {
		t.Fatalf("unexpected row after missed: %+v", r)
	}

	r, err = UpdateReminderStatus(context.Background(), db, "ev-1", domain.StatusMissed, nil)
	if err != nil {
		t.Fatalf("second UpdateReminderStatus: %v", err)
	}
	if r.SnoozeCount != 2 {
		t.Fatalf("expected snooze count 2, got %d", r.SnoozeCount)
	}
}

func TestUpdateReminderStatus_Taken_RecordsTakenTime(t *testing.T) {
	db := newReminderDB(t)
	medID := seedMedicine(t, db, "u1", "Dolo 650")

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if _, err := CreateReminder(context.Background(), db, medID, "ev-1", at, domain.SlotMorning); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	taken := time.Date(2026, 3, 1, 8, 5, 0, 0, time.UTC)
	r, err := UpdateReminderStatus(context.Background(), db, "ev-1", domain.StatusTaken, &taken)
	if err != nil {
		t.Fatalf("UpdateReminderStatus: %v", err)
	}
	if r.Status != domain.StatusTaken || r.ActualTakenTime == nil || !r.ActualTakenTime.Equal(taken) {
		t.Fatalf("unexpected row after taken: %+v", r)
	}
	if r.SnoozeCount != 0 {
		t.Fatalf("taken must not touch snooze count, got %d", r.SnoozeCount)
	}
}

func TestUpdateReminderStatus_UnknownEvent_ReturnsErrNotFound(t *testing.T) {
	db := newReminderDB(t)
	if _, err := UpdateReminderStatus(context.Background(), db, "missing", domain.StatusTaken, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateReschedule_CarriesChainFields(t *testing.T) {
	db := newReminderDB(t)
	medID := seedMedicine(t, db, "u1", "Dolo 650")

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	orig, err := CreateReminder(context.Background(), db, medID, "ev-1", at, domain.SlotMorning)
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	r, err := CreateReschedule(context.Background(), db, medID, "ev-2", at.Add(2*time.Hour), domain.SlotMorning, 1, orig.ID)
	if err != nil {
		t.Fatalf("CreateReschedule: %v", err)
	}
	if r.Status != domain.StatusPending || r.SnoozeCount != 1 {
		t.Fatalf("unexpected reschedule row: %+v", r)
	}
	if r.RescheduledFrom == nil || *r.RescheduledFrom != orig.ID {
		t.Fatalf("expected back-reference to %s, got %+v", orig.ID, r.RescheduledFrom)
	}
}

func TestRemindersByEventIDs_BatchAndEmpty(t *testing.T) {
	db := newReminderDB(t)
	medID := seedMedicine(t, db, "u1", "Dolo 650")

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, ev := range []string{"ev-a", "ev-b", "ev-c"} {
		if _, err := CreateReminder(context.Background(), db, medID, ev, at.AddDate(0, 0, i), domain.SlotMorning); err != nil {
			t.Fatalf("CreateReminder %s: %v", ev, err)
		}
	}

	got, err := RemindersByEventIDs(context.Background(), db, []string{"ev-a", "ev-c", "ev-missing"})
	if err != nil {
		t.Fatalf("RemindersByEventIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	for _, r := range got {
		if r.Medicine.Name != "Dolo 650" {
			t.Fatalf("expected preloaded medicine on %s", r.EventID)
		}
	}

	empty, err := RemindersByEventIDs(context.Background(), db, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty slice, got %v err=%v", empty, err)
	}
}

func TestListRemindersByUser_OrderAndIsolation(t *testing.T) {
	db := newReminderDB(t)
	mine := seedMedicine(t, db, "u1", "Dolo 650")
	other := seedMedicine(t, db, "u2", "Aspirin")

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := CreateReminder(context.Background(), db, mine, uuid.NewString(), base.AddDate(0, 0, i), domain.SlotMorning); err != nil {
			t.Fatalf("seed mine %d: %v", i, err)
		}
	}
	if _, err := CreateReminder(context.Background(), db, other, uuid.NewString(), base, domain.SlotMorning); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	asc, err := ListRemindersByUser(context.Background(), db, "u1", true, 0, 0)
	if err != nil {
		t.Fatalf("ListRemindersByUser asc: %v", err)
	}
	if len(asc) != 3 {
		t.Fatalf("expected 3 rows for u1, got %d", len(asc))
	}
	for i := 1; i < len(asc); i++ {
		if asc[i].ScheduledTime.Before(asc[i-1].ScheduledTime) {
			t.Fatalf("ascending order violated at %d", i)
		}
	}

	desc, err := ListRemindersByUser(context.Background(), db, "u1", false, 0, 2)
	if err != nil {
		t.Fatalf("ListRemindersByUser desc: %v", err)
	}
	if len(desc) != 2 || desc[0].ScheduledTime.Before(desc[1].ScheduledTime) {
		t.Fatalf("descending page mismatch: %+v", desc)
	}

	total, err := CountRemindersByUser(context.Background(), db, "u1")
	if err != nil || total != 3 {
		t.Fatalf("CountRemindersByUser = %d, %v", total, err)
	}
}
