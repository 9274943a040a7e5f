package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rxmind/go-reminder-backend/internal/calendar"
	"github.com/rxmind/go-reminder-backend/internal/parser"
	"github.com/rxmind/go-reminder-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, repo.AutoMigrate(db))
	return db
}

// fakeCalendar is an in-memory CalendarAPI capturing every write.
type fakeCalendar struct {
	inserted  []calendar.Event
	insertErr error

	listEvents []calendar.Event
	listErr    error

	getEvent calendar.Event
	getErr   error

	patches  map[string]string
	patchErr error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{patches: map[string]string{}}
}

func (f *fakeCalendar) InsertEvent(_ context.Context, _ calendar.Credential, ev calendar.Event) (calendar.Event, error) {
	if f.insertErr != nil {
		return calendar.Event{}, f.insertErr
	}
	ev.ID = fmt.Sprintf("ev-%d", len(f.inserted)+1)
	f.inserted = append(f.inserted, ev)
	return ev, nil
}

func (f *fakeCalendar) ListEvents(_ context.Context, _ calendar.Credential, _, _ time.Time) ([]calendar.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listEvents, nil
}

func (f *fakeCalendar) GetEvent(_ context.Context, _ calendar.Credential, id string) (calendar.Event, error) {
	if f.getErr != nil {
		return calendar.Event{}, f.getErr
	}
	ev := f.getEvent
	if ev.ID == "" {
		ev.ID = id
	}
	return ev, nil
}

func (f *fakeCalendar) PatchEventDescription(_ context.Context, _ calendar.Credential, id, description string) error {
	if f.patchErr != nil {
		return f.patchErr
	}
	f.patches[id] = description
	return nil
}

// fakeParser counts invocations so quota tests can prove the parser is never
// reached after a breach.
type fakeParser struct {
	calls     int
	medicines []parser.Medicine
	err       error
}

func (f *fakeParser) Parse(_ context.Context, _ []byte, _, _ string) ([]parser.Medicine, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.medicines, nil
}
