// Package schedule implements the dose schedule expander: it turns a parsed
// medicine (tablet count plus morning/afternoon/evening indicators) and the
// user's slot clock times into concrete, dated dose occurrence series.
//
// The expander is pure: it performs no I/O, derives everything from its
// inputs and the supplied "now", and cannot fail partially. Recurrence math
// is delegated to github.com/teambition/rrule-go so the series produced here
// and the RRULE line written to the external calendar cannot drift apart.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/rxmind/go-reminder-backend/internal/domain"
)

// DoseDuration is the fixed reminder window of every occurrence.
const DoseDuration = 15 * time.Minute

// ErrBadClock reports a slot time that is not a valid 24h "HH:MM" string.
var ErrBadClock = errors.New("slot time must be HH:MM")

// Preferences carries the effective slot clock times used for expansion.
// Zero values fall back per-slot to the application defaults.
type Preferences struct {
	MorningTime   string
	AfternoonTime string
	EveningTime   string
}

// DefaultPreferences returns the stock slot times used when a user has not
// saved any preferences: 08:00, 13:00, 20:00.
func DefaultPreferences() Preferences {
	return Preferences{MorningTime: "08:00", AfternoonTime: "13:00", EveningTime: "20:00"}
}

// Occurrence is one concrete dose instance within a series.
type Occurrence struct {
	Start time.Time
	End   time.Time
	Slot  string
}

// Series describes the full recurring run of one active slot: the first
// occurrence window, the COUNT-bounded daily recurrence rule, and the
// denormalized medicine metadata carried onto every calendar event.
type Series struct {
	Slot         string
	Start        time.Time
	End          time.Time
	TotalDays    int
	RRule        string // e.g. "RRULE:FREQ=DAILY;COUNT=15"
	MedicineName string
	TabletCount  int
	Notes        string

	rule *rrule.RRule
}

// Occurrences returns a lazy, finite, non-restartable iterator over the
// concrete instances of the series in chronological day order. Each call to
// the returned function yields the next occurrence until ok is false.
func (s *Series) Occurrences() func() (Occurrence, bool) {
	next := s.rule.Iterator()
	return func() (Occurrence, bool) {
		start, ok := next()
		if !ok {
			return Occurrence{}, false
		}
		return Occurrence{Start: start, End: start.Add(DoseDuration), Slot: s.Slot}, true
	}
}

// Expand produces one Series per active slot of the medicine, in slot order
// (morning, afternoon, evening).
//
// totalDays = ceil(tabletCount / dosesPerDay); a medicine with no active slot
// is degenerate and expands to no series at all. The first occurrence lands
// today at the slot time when that time is still ahead of now, otherwise
// tomorrow, so a reminder is never scheduled in the past.
//
// Malformed slot clock strings fail with ErrBadClock.
func Expand(med domain.Medicine, prefs Preferences, now time.Time) ([]Series, error) {
	defaults := DefaultPreferences()
	slots := []struct {
		label  string
		clock  string
		active int
	}{
		{domain.SlotMorning, firstNonEmpty(prefs.MorningTime, defaults.MorningTime), med.Morning},
		{domain.SlotAfternoon, firstNonEmpty(prefs.AfternoonTime, defaults.AfternoonTime), med.Afternoon},
		{domain.SlotEvening, firstNonEmpty(prefs.EveningTime, defaults.EveningTime), med.Evening},
	}

	dosesPerDay := 0
	for _, s := range slots {
		if s.active == 1 {
			dosesPerDay++
		}
	}

	totalDays := med.TabletCount
	if dosesPerDay > 0 {
		totalDays = (med.TabletCount + dosesPerDay - 1) / dosesPerDay
	}

	out := make([]Series, 0, dosesPerDay)
	for _, s := range slots {
		if s.active != 1 {
			continue
		}
		if totalDays <= 0 {
			continue
		}

		hour, minute, err := ParseClock(s.clock)
		if err != nil {
			return nil, err
		}

		start := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !start.After(now) {
			start = start.AddDate(0, 0, 1)
		}

		rule, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.DAILY,
			Count:   totalDays,
			Dtstart: start,
		})
		if err != nil {
			return nil, fmt.Errorf("build recurrence rule: %w", err)
		}

		out = append(out, Series{
			Slot:         s.label,
			Start:        start,
			End:          start.Add(DoseDuration),
			TotalDays:    totalDays,
			RRule:        fmt.Sprintf("RRULE:FREQ=DAILY;COUNT=%d", totalDays),
			MedicineName: med.Name,
			TabletCount:  med.TabletCount,
			Notes:        med.Notes,
			rule:         rule,
		})
	}
	return out, nil
}

// ParseClock validates and splits a 24h "HH:MM" string.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	if _, err := fmt.Sscanf(s, "%2d:%2d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return hour, minute, nil
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
