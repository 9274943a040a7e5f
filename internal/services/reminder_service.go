// Package services – ReminderService
//
// This file implements the ReminderService, which owns the write side of the
// reminder lifecycle: expanding parsed medicines into calendar events plus
// store rows, and driving the taken/missed status transitions including the
// missed-dose reschedule chain.
//
// Every calendar call takes the caller's explicit credential; the service
// holds no ambient session. Service-level errors (e.g. ErrReminderNotFound)
// are returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rxmind/go-reminder-backend/internal/calendar"
	"github.com/rxmind/go-reminder-backend/internal/domain"
	"github.com/rxmind/go-reminder-backend/internal/parser"
	"github.com/rxmind/go-reminder-backend/internal/repo"
	"github.com/rxmind/go-reminder-backend/internal/schedule"
)

// CalendarAPI is the calendar client contract required by the services layer.
type CalendarAPI interface {
	InsertEvent(ctx context.Context, cred calendar.Credential, ev calendar.Event) (calendar.Event, error)
	ListEvents(ctx context.Context, cred calendar.Credential, timeMin, timeMax time.Time) ([]calendar.Event, error)
	GetEvent(ctx context.Context, cred calendar.Credential, id string) (calendar.Event, error)
	PatchEventDescription(ctx context.Context, cred calendar.Credential, id, description string) error
}

// ReminderService coordinates reminder creation and status transitions.
type ReminderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Calendar is the external calendar client.
	Calendar CalendarAPI
	// TimeZone is the IANA zone written onto created events.
	TimeZone string

	// Now is a seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewReminderService constructs a ReminderService.
func NewReminderService(db *gorm.DB, cal CalendarAPI, timeZone string) *ReminderService {
	return &ReminderService{DB: db, Calendar: cal, TimeZone: timeZone}
}

func (s *ReminderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateResult summarizes one CreateReminders call.
type CreateResult struct {
	PrescriptionID string `json:"prescription_id"`
	EventsCreated  int    `json:"events_created"`
}

// CreateReminders persists the parsed medicines under a new prescription,
// expands each into per-slot dose series, writes one recurring calendar event
// per series, and records the corresponding store rows keyed by the
// normalized event identifier.
//
// Events are created in slot order (morning, afternoon, evening) per
// medicine; the recurrence rule orders days within a slot. A store row that
// collides on (medicine, time, slot) is a benign duplicate and is skipped. A
// calendar write failure aborts the call; rows already committed remain
// (at-least-once semantics, retries are made safe by the idempotency layer).
func (s *ReminderService) CreateReminders(ctx context.Context, cred calendar.Credential, userID, ocrText string, meds []parser.Medicine) (*CreateResult, error) {
	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "CreateReminders",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("medicines", len(meds)),
		),
	)
	defer span.End()

	if len(meds) == 0 {
		return nil, ErrNoMedicines
	}

	prefs, err := s.effectivePrefs(ctx, userID)
	if err != nil {
		return nil, err
	}

	presc, err := repo.CreatePrescription(ctx, s.DB, userID, ocrText, "")
	if err != nil {
		return nil, err
	}

	created := 0
	for _, cand := range meds {
		cand = parser.Normalize(cand)
		vec := [3]int{cand.WhenToTake[0], cand.WhenToTake[1], cand.WhenToTake[2]}

		med, err := repo.CreateMedicine(ctx, s.DB, presc.ID, cand.Name, cand.TabletCount, vec, cand.Notes)
		if err != nil {
			return nil, err
		}

		series, err := schedule.Expand(*med, prefs, s.now())
		if err != nil {
			return nil, err
		}

		for _, sr := range series {
			ev, err := s.Calendar.InsertEvent(ctx, cred, calendar.ToEvent(sr, med.ID, s.TimeZone))
			if err != nil {
				return nil, err
			}
			eventID := calendar.NormalizeEventID(ev.ID)

			if _, err := repo.CreateReminder(ctx, s.DB, med.ID, eventID, sr.Start, sr.Slot); err != nil {
				if errors.Is(err, repo.ErrDuplicate) {
					log.Warn().
						Str("medicine_id", med.ID).
						Str("slot", sr.Slot).
						Msg("duplicate reminder occurrence skipped")
					continue
				}
				return nil, err
			}
			created++
		}
	}

	return &CreateResult{PrescriptionID: presc.ID, EventsCreated: created}, nil
}

// MarkTaken transitions the occurrence behind eventID to "taken", recording
// the taken timestamp. A second call is a store-side no-op but still attempts
// the audit update. The external description update is best-effort: its
// failure is logged and swallowed.
func (s *ReminderService) MarkTaken(ctx context.Context, cred calendar.Credential, eventID string) (*domain.Reminder, error) {
	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "MarkTaken",
		trace.WithAttributes(attribute.String("event.id", eventID)),
	)
	defer span.End()

	eventID = calendar.NormalizeEventID(eventID)
	takenAt := s.now().UTC()

	r, err := repo.UpdateReminderStatus(ctx, s.DB, eventID, domain.StatusTaken, &takenAt)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrReminderNotFound
	}
	if err != nil {
		return nil, err
	}

	s.auditDescription(ctx, cred, eventID,
		fmt.Sprintf("Status: TAKEN at %s", takenAt.Format(time.RFC1123)))
	return r, nil
}

// MarkMissed transitions the occurrence to "missed" (incrementing the snooze
// count), then reschedules it: reads the original event, computes the new
// start from the snooze spec, creates a brand-new tagged calendar event with
// a back-reference, and records a fresh pending store row carrying the
// incremented count.
//
// The original event fetch and the new event creation are required steps; a
// failure in either aborts the call with the upstream error and no
// compensation of already-committed writes. Only the final audit update of
// the original event's description is best-effort.
func (s *ReminderService) MarkMissed(ctx context.Context, cred calendar.Credential, eventID string, snooze SnoozeSpec) (*domain.Reminder, error) {
	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "MarkMissed",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("snooze.option", snooze.Option),
		),
	)
	defer span.End()

	eventID = calendar.NormalizeEventID(eventID)

	r, err := repo.UpdateReminderStatus(ctx, s.DB, eventID, domain.StatusMissed, nil)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrReminderNotFound
	}
	if err != nil {
		return nil, err
	}

	original, err := s.Calendar.GetEvent(ctx, cred, eventID)
	if err != nil {
		return nil, err
	}

	// Prefer the live calendar start; the store row is the fallback when the
	// event shape is incomplete.
	base := r.ScheduledTime
	if p := calendar.FromEvent(original); p.Start != nil {
		base = *p.Start
	}
	newStart := snooze.Resolve(base)

	created, err := s.Calendar.InsertEvent(ctx, cred, calendar.ToRescheduleEvent(original, eventID, newStart))
	if err != nil {
		return nil, err
	}

	next, err := repo.CreateReschedule(ctx, s.DB, r.MedicineID, calendar.NormalizeEventID(created.ID), newStart, r.Slot, r.SnoozeCount, r.ID)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			log.Warn().Str("event_id", eventID).Msg("duplicate reschedule occurrence skipped")
			return r, nil
		}
		return nil, err
	}

	line := fmt.Sprintf("Status: MISSED. Rescheduled to %s", newStart.Format(time.RFC1123))
	description := line
	if original.Description != "" {
		description = original.Description + "\n\n" + line
	}
	if err := s.Calendar.PatchEventDescription(ctx, cred, eventID, description); err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("status audit update failed")
	}
	return next, nil
}

// History returns the user's occurrence rows newest-first, with the total
// count for pagination.
func (s *ReminderService) History(ctx context.Context, userID string, offset, limit int) ([]domain.Reminder, int64, error) {
	total, err := repo.CountRemindersByUser(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Reminder{}, 0, nil
	}
	items, err := repo.ListRemindersByUser(ctx, s.DB, userID, false, offset, limit)
	return items, total, err
}

// HistoryStats exposes the aggregate used for conditional history responses.
func (s *ReminderService) HistoryStats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.RemindersStats(ctx, s.DB, userID)
}

// effectivePrefs loads the user's slot times, falling back to the defaults
// when no row exists.
func (s *ReminderService) effectivePrefs(ctx context.Context, userID string) (schedule.Preferences, error) {
	p, err := repo.GetPreferences(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return schedule.DefaultPreferences(), nil
	}
	if err != nil {
		return schedule.Preferences{}, err
	}
	return schedule.Preferences{
		MorningTime:   p.MorningTime,
		AfternoonTime: p.AfternoonTime,
		EveningTime:   p.EveningTime,
	}, nil
}

// auditDescription appends a status line to the event's description for user
// visibility. Cosmetic: failures are logged, never surfaced.
func (s *ReminderService) auditDescription(ctx context.Context, cred calendar.Credential, eventID, statusLine string) {
	description := statusLine
	if ev, err := s.Calendar.GetEvent(ctx, cred, eventID); err == nil && ev.Description != "" {
		description = ev.Description + "\n\n" + statusLine
	}
	if err := s.Calendar.PatchEventDescription(ctx, cred, eventID, description); err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("status audit update failed")
	}
}
