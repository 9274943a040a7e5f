// Package calendar is the boundary to the external calendar service: the
// JSON wire shapes of its event resources, the bidirectional mapper between
// dose occurrences and events, and a small REST client.
//
// The external payloads are loosely shaped, so every nested field here is
// optional and parsed defensively: a missing start time or metadata bag
// degrades to a partial record, never a crash.
package calendar

// Private metadata keys stored in an event's extended-properties bag. The
// app tag marks an event as owned by this system and is the filter used when
// listing; the rest is denormalized display metadata and reschedule links.
const (
	PropAppTag          = "medicineApp"
	PropMedicineName    = "medicineName"
	PropMedicineID      = "medicineId"
	PropTotalTablets    = "totalTablets"
	PropTimeSlot        = "timeSlot"
	PropNotes           = "notes"
	PropMissedDose      = "missedDose"
	PropOriginalEventID = "originalEventId"
)

// EventDateTime is the start/end shape of an external event.
type EventDateTime struct {
	DateTime string `json:"dateTime,omitempty"` // RFC 3339
	TimeZone string `json:"timeZone,omitempty"`
}

// ReminderOverride replaces the calendar's built-in notification defaults.
type ReminderOverride struct {
	Method  string `json:"method"` // "popup" or "email"
	Minutes int    `json:"minutes"`
}

// EventReminders disables default notifications in favor of overrides.
type EventReminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []ReminderOverride `json:"overrides,omitempty"`
}

// ExtendedProperties carries the opaque private metadata bag.
type ExtendedProperties struct {
	Private map[string]string `json:"private,omitempty"`
}

// Event is the external calendar's event resource. Recurring series carry a
// server-assigned base identifier; materialized instances of the series are
// returned with a per-instance suffix appended to it.
type Event struct {
	ID                 string              `json:"id,omitempty"`
	Summary            string              `json:"summary,omitempty"`
	Description        string              `json:"description,omitempty"`
	Start              *EventDateTime      `json:"start,omitempty"`
	End                *EventDateTime      `json:"end,omitempty"`
	Recurrence         []string            `json:"recurrence,omitempty"`
	Reminders          *EventReminders     `json:"reminders,omitempty"`
	ExtendedProperties *ExtendedProperties `json:"extendedProperties,omitempty"`
}

// Private returns the value of a private metadata key, or "" when the bag or
// the key is absent.
func (e Event) Private(key string) string {
	if e.ExtendedProperties == nil || e.ExtendedProperties.Private == nil {
		return ""
	}
	return e.ExtendedProperties.Private[key]
}

// Owned reports whether the event carries this system's app tag. Events
// without the tag belong to the user's wider calendar and are filtered out.
func (e Event) Owned() bool { return e.Private(PropAppTag) == "true" }

// EventList is the windowed list response shape.
type EventList struct {
	Items []Event `json:"items"`
}
