package services

import "time"

// Snooze option names accepted from the UI.
const (
	SnoozeThirtyMin = "30min"
	SnoozeOneHour   = "1hr"
	SnoozeTomorrow  = "tomorrow"
	SnoozeCustom    = "custom"
)

// fallbackSnooze is applied to unrecognized or absent snooze specs.
const fallbackSnooze = 2 * time.Hour

// SnoozeSpec is the caller's requested delay for a missed dose. Option names
// a preset; "custom" additionally carries Value and Unit.
type SnoozeSpec struct {
	Option string `json:"option"`
	Value  int    `json:"value,omitempty"`
	Unit   string `json:"unit,omitempty"` // minutes | hours | days
}

// Resolve computes the rescheduled start time for a missed dose.
//
// Presets: "30min" +30m, "1hr" +1h, "tomorrow" same clock time next day.
// Custom minutes and hours apply the literal duration; a custom 1-day snooze
// is equivalent to "tomorrow". Any other custom day count, a non-positive
// value, an unknown unit, or an unknown option falls back to +2 hours.
func (s SnoozeSpec) Resolve(from time.Time) time.Time {
	switch s.Option {
	case SnoozeThirtyMin:
		return from.Add(30 * time.Minute)
	case SnoozeOneHour:
		return from.Add(time.Hour)
	case SnoozeTomorrow:
		return from.AddDate(0, 0, 1)
	case SnoozeCustom:
		if s.Value > 0 {
			switch s.Unit {
			case "minutes":
				return from.Add(time.Duration(s.Value) * time.Minute)
			case "hours":
				return from.Add(time.Duration(s.Value) * time.Hour)
			case "days":
				// Only the single-day case is distinguished; longer day
				// counts take the generic fallback.
				if s.Value == 1 {
					return from.AddDate(0, 0, 1)
				}
			}
		}
	}
	return from.Add(fallbackSnooze)
}
