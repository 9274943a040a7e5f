// Event mapper: pure translation between dose occurrence series and the
// external calendar's event shape. Network I/O lives in the client; the
// mapper has no side effects.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rxmind/go-reminder-backend/internal/schedule"
)

// summaryPrefix is the title prefix of every dose event ("Take {name}").
// FromEvent strips it when the metadata bag is missing the medicine name.
const summaryPrefix = "Take "

// unknownMedicine is the display fallback for events we own but cannot name.
const unknownMedicine = "Unknown Medicine"

// Notification lead times requested on every dose event, replacing the
// calendar's defaults.
var doseReminders = EventReminders{
	UseDefault: false,
	Overrides: []ReminderOverride{
		{Method: "popup", Minutes: 10},
		{Method: "email", Minutes: 30},
	},
}

// NormalizeEventID strips the provider's per-instance recurrence suffix from
// an external event identifier, yielding the correlation key shared by every
// instance of a series and by the reminder store. The provider appends the
// suffix with an underscore separator; base identifiers never contain one,
// so normalization is idempotent and a no-op for non-recurring identifiers.
func NormalizeEventID(raw string) string {
	base, _, _ := strings.Cut(raw, "_")
	return base
}

// ToEvent renders one expanded dose series as an external calendar event:
// a "Take {name}" title, a human-readable description, the series' bounded
// daily recurrence, explicit notification overrides, and the private
// metadata bag marking the event as app-owned and linking it back to the
// internal medicine record.
func ToEvent(s schedule.Series, medicineID, timeZone string) Event {
	notes := s.Notes
	if notes == "" {
		notes = "N/A"
	}
	description := fmt.Sprintf(
		"Medication reminder: Take %s\n\nTotal tablets: %d\nTime: %s\nNotes: %s\n\nClick 'Done' when taken or 'Missed' if you missed this dose.",
		s.MedicineName, s.TabletCount, s.Slot, notes,
	)

	return Event{
		Summary:     summaryPrefix + s.MedicineName,
		Description: description,
		Start:       &EventDateTime{DateTime: s.Start.Format(time.RFC3339), TimeZone: timeZone},
		End:         &EventDateTime{DateTime: s.End.Format(time.RFC3339), TimeZone: timeZone},
		Recurrence:  []string{s.RRule},
		Reminders:   &doseReminders,
		ExtendedProperties: &ExtendedProperties{Private: map[string]string{
			PropAppTag:       "true",
			PropMedicineName: s.MedicineName,
			PropTotalTablets: strconv.Itoa(s.TabletCount),
			PropTimeSlot:     s.Slot,
			PropNotes:        s.Notes,
			PropMedicineID:   medicineID,
		}},
	}
}

// ToRescheduleEvent builds the brand-new single event for a missed dose:
// same medicine, shifted start, tagged as a reschedule with back-references
// to the original occurrence. The original event is never mutated beyond its
// audit description.
func ToRescheduleEvent(original Event, originalEventID string, newStart time.Time) Event {
	origStart := ""
	if original.Start != nil {
		origStart = original.Start.DateTime
	}

	ev := Event{
		Summary:     original.Summary + " (Missed Dose)",
		Description: fmt.Sprintf("%s\n\nThis is a rescheduled reminder for a missed dose.\nOriginal time: %s", original.Description, origStart),
		Start:       &EventDateTime{DateTime: newStart.Format(time.RFC3339)},
		End:         &EventDateTime{DateTime: newStart.Add(schedule.DoseDuration).Format(time.RFC3339)},
		Reminders:   &doseReminders,
		ExtendedProperties: &ExtendedProperties{Private: map[string]string{
			PropAppTag:          "true",
			PropMedicineName:    firstNonEmptyStr(original.Private(PropMedicineName), unknownMedicine),
			PropMedicineID:      original.Private(PropMedicineID),
			PropTimeSlot:        original.Private(PropTimeSlot),
			PropNotes:           original.Private(PropNotes),
			PropMissedDose:      "true",
			PropOriginalEventID: originalEventID,
		}},
	}
	if original.Start != nil && original.Start.TimeZone != "" {
		ev.Start.TimeZone = original.Start.TimeZone
		ev.End.TimeZone = original.Start.TimeZone
	}
	return ev
}

// Parsed is the best-effort internal view of an external event. Start is nil
// when the event is missing its start time; downstream filtering treats such
// records as low-priority rather than failing.
type Parsed struct {
	EventID       string
	CorrelationID string
	MedicineName  string
	MedicineID    string
	Slot          string
	Notes         string
	Description   string
	Start         *time.Time
	Owned         bool
	Missed        bool
}

// FromEvent extracts the internal view of an external event. The metadata
// bag takes precedence for the medicine name; the "Take " title prefix is
// the fallback. Absent required fields never produce an error.
func FromEvent(ev Event) Parsed {
	p := Parsed{
		EventID:       ev.ID,
		CorrelationID: NormalizeEventID(ev.ID),
		MedicineID:    ev.Private(PropMedicineID),
		Slot:          ev.Private(PropTimeSlot),
		Notes:         ev.Private(PropNotes),
		Description:   ev.Description,
		Owned:         ev.Owned(),
		Missed:        ev.Private(PropMissedDose) == "true",
	}

	p.MedicineName = ev.Private(PropMedicineName)
	if p.MedicineName == "" {
		if trimmed := strings.TrimPrefix(ev.Summary, summaryPrefix); trimmed != "" && trimmed != ev.Summary {
			p.MedicineName = trimmed
		}
	}
	if p.MedicineName == "" {
		p.MedicineName = unknownMedicine
	}

	if ev.Start != nil && ev.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
			p.Start = &t
		}
	}
	return p
}

func firstNonEmptyStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
