package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnoozeSpec_Resolve(t *testing.T) {
	from := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		spec SnoozeSpec
		want time.Time
	}{
		{"thirty minutes", SnoozeSpec{Option: SnoozeThirtyMin}, from.Add(30 * time.Minute)},
		{"one hour", SnoozeSpec{Option: SnoozeOneHour}, from.Add(time.Hour)},
		{"tomorrow keeps clock time", SnoozeSpec{Option: SnoozeTomorrow}, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
		{"custom minutes", SnoozeSpec{Option: SnoozeCustom, Value: 45, Unit: "minutes"}, from.Add(45 * time.Minute)},
		{"custom hours", SnoozeSpec{Option: SnoozeCustom, Value: 3, Unit: "hours"}, from.Add(3 * time.Hour)},
		{"custom one day equals tomorrow", SnoozeSpec{Option: SnoozeCustom, Value: 1, Unit: "days"}, from.AddDate(0, 0, 1)},
		{"custom multi-day falls back", SnoozeSpec{Option: SnoozeCustom, Value: 3, Unit: "days"}, from.Add(2 * time.Hour)},
		{"custom zero value falls back", SnoozeSpec{Option: SnoozeCustom, Value: 0, Unit: "hours"}, from.Add(2 * time.Hour)},
		{"custom unknown unit falls back", SnoozeSpec{Option: SnoozeCustom, Value: 2, Unit: "weeks"}, from.Add(2 * time.Hour)},
		{"empty option falls back", SnoozeSpec{}, from.Add(2 * time.Hour)},
		{"garbage option falls back", SnoozeSpec{Option: "whenever"}, from.Add(2 * time.Hour)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.spec.Resolve(from))
		})
	}
}
