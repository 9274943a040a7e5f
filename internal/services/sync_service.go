// Package services – SyncService
//
// This file implements the read-side reconciler: it merges the external
// calendar's app-tagged events (scheduling truth) with the reminder store
// (status truth) into the user-visible reminder lists. The reconciler is
// read-only and idempotent; re-running it with no intervening writes yields
// an identical result.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rxmind/go-reminder-backend/internal/calendar"
	"github.com/rxmind/go-reminder-backend/internal/domain"
	"github.com/rxmind/go-reminder-backend/internal/repo"
)

// DefaultWindowDays bounds the reconciliation window when no override is
// configured.
const DefaultWindowDays = 7

// ReminderView is one merged occurrence as shown to the user: the calendar's
// scheduling data joined with the store's status.
type ReminderView struct {
	EventID       string     `json:"event_id"`
	CorrelationID string     `json:"correlation_id"`
	MedicineName  string     `json:"medicine_name"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	Time          string     `json:"time"`
	Date          string     `json:"date"`
	Start         *time.Time `json:"start,omitempty"`
	SnoozeCount   int        `json:"snooze_count"`
	Missed        bool       `json:"missed"`
}

// SyncService produces merged reminder views.
type SyncService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Calendar is the external calendar client.
	Calendar CalendarAPI
	// WindowDays bounds the future window queried from the calendar.
	WindowDays int

	// Now is a seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewSyncService constructs a SyncService with the default window.
func NewSyncService(db *gorm.DB, cal CalendarAPI) *SyncService {
	return &SyncService{DB: db, Calendar: cal, WindowDays: DefaultWindowDays}
}

func (s *SyncService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ActiveReminders returns the merged occurrences still awaiting user action
// (status pending or scheduled), in the calendar's chronological order.
func (s *SyncService) ActiveReminders(ctx context.Context, cred calendar.Credential) ([]ReminderView, error) {
	all, err := s.merge(ctx, cred, "ActiveReminders")
	if err != nil {
		return nil, err
	}
	out := make([]ReminderView, 0, len(all))
	for _, v := range all {
		if v.Status == domain.StatusPending || v.Status == domain.StatusScheduled {
			out = append(out, v)
		}
	}
	return out, nil
}

// AllReminders returns the unfiltered merged list for history and audit
// views, in the calendar's chronological order.
func (s *SyncService) AllReminders(ctx context.Context, cred calendar.Credential) ([]ReminderView, error) {
	return s.merge(ctx, cred, "AllReminders")
}

// merge fetches the windowed event list, joins it against the store by
// normalized identifier, and attaches status, notes, and display formatting.
// Unmatched events default to "pending" (not yet persisted). A calendar or
// store failure is fatal; there is no stale fallback.
func (s *SyncService) merge(ctx context.Context, cred calendar.Credential, op string) ([]ReminderView, error) {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, op,
		trace.WithAttributes(attribute.Int("window.days", s.windowDays())),
	)
	defer span.End()

	now := s.now()
	events, err := s.Calendar.ListEvents(ctx, cred, now, now.AddDate(0, 0, s.windowDays()))
	if err != nil {
		return nil, err
	}

	parsed := make([]calendar.Parsed, 0, len(events))
	keys := make([]string, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		p := calendar.FromEvent(ev)
		if !p.Owned {
			continue
		}
		parsed = append(parsed, p)
		if _, dup := seen[p.CorrelationID]; !dup {
			seen[p.CorrelationID] = struct{}{}
			keys = append(keys, p.CorrelationID)
		}
	}

	rows, err := repo.RemindersByEventIDs(ctx, s.DB, keys)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.Reminder, len(rows))
	for _, r := range rows {
		byKey[r.EventID] = r
	}

	out := make([]ReminderView, 0, len(parsed))
	for _, p := range parsed {
		v := ReminderView{
			EventID:       p.EventID,
			CorrelationID: p.CorrelationID,
			MedicineName:  p.MedicineName,
			Status:        domain.StatusPending,
			Notes:         p.Notes,
			Start:         p.Start,
			Missed:        p.Missed,
		}
		if r, ok := byKey[p.CorrelationID]; ok {
			v.Status = r.Status
			v.SnoozeCount = r.SnoozeCount
			if v.Notes == "" {
				v.Notes = r.Medicine.Notes
			}
		}
		if p.Start != nil {
			v.Time = p.Start.Format("3:04 PM")
			v.Date = p.Start.Format("Mon, Jan 2 2006")
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *SyncService) windowDays() int {
	if s.WindowDays > 0 {
		return s.WindowDays
	}
	return DefaultWindowDays
}
