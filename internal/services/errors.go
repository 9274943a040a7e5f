// Package services defines the business logic for reminder creation, status
// transitions, calendar synchronization, prescription intake, and user
// preferences. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrReminderNotFound indicates that no dose occurrence matches the given
	// external event identifier.
	ErrReminderNotFound = errors.New("reminder not found")

	// ErrNoMedicines is returned when a create-reminders request carries an
	// empty medicine list.
	ErrNoMedicines = errors.New("no medicines to schedule")

	// ErrBadStatus is returned when a status update names anything other than
	// "taken" or "missed".
	ErrBadStatus = errors.New("status must be taken or missed")

	// ErrRateLimited is returned when the user has exhausted the trailing
	// 24-hour scan quota. The UI suggests manual entry as a fallback.
	ErrRateLimited = errors.New("daily scan limit reached")

	// ErrEmptyScan is returned when a prescription-processing request carries
	// neither an image nor OCR text.
	ErrEmptyScan = errors.New("scan has no image or text")
)
