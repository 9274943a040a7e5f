// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Reminder
// model, the authoritative record of each dose occurrence.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rxmind/go-reminder-backend/internal/domain"
)

// CreateReminder inserts a new dose occurrence row with status "pending".
// eventID is the normalized external calendar identifier (may be empty when
// the external write has not happened yet). A uniqueness violation on
// (medicine_id, scheduled_time, slot) returns ErrDuplicate so concurrent
// double-creates collapse into one row.
func CreateReminder(ctx context.Context, db *gorm.DB, medicineID, eventID string, scheduledTime time.Time, slot string) (*domain.Reminder, error) {
	r := &domain.Reminder{
		ID:            uuid.NewString(),
		MedicineID:    medicineID,
		EventID:       eventID,
		ScheduledTime: scheduledTime,
		Slot:          slot,
		Status:        domain.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return r, nil
}

// CreateReschedule inserts the follow-up occurrence for a missed dose. The
// new row starts over as "pending", carries the origin chain's snooze count,
// and points back at the occurrence it replaces.
func CreateReschedule(ctx context.Context, db *gorm.DB, medicineID, eventID string, scheduledTime time.Time, slot string, snoozeCount int, fromReminderID string) (*domain.Reminder, error) {
	r := &domain.Reminder{
		ID:              uuid.NewString(),
		MedicineID:      medicineID,
		EventID:         eventID,
		ScheduledTime:   scheduledTime,
		Slot:            slot,
		Status:          domain.StatusPending,
		SnoozeCount:     snoozeCount,
		RescheduledFrom: &fromReminderID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return r, nil
}

// GetReminderByEventID fetches the occurrence stored under a normalized
// external event identifier.
func GetReminderByEventID(ctx context.Context, db *gorm.DB, eventID string) (*domain.Reminder, error) {
	var r domain.Reminder
	err := db.WithContext(ctx).Preload("Medicine").Where("event_id = ?", eventID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReminderStatus sets the status of the occurrence stored under
// eventID. A transition to "missed" increments the snooze count; a
// transition to "taken" records takenAt and leaves the count unchanged. The
// store only checks row existence; transition legality is service policy.
func UpdateReminderStatus(ctx context.Context, db *gorm.DB, eventID, status string, takenAt *time.Time) (*domain.Reminder, error) {
	var r domain.Reminder
	err := db.WithContext(ctx).Where("event_id = ?", eventID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"status": status}
	if status == domain.StatusMissed {
		updates["snooze_count"] = gorm.Expr("snooze_count + 1")
	}
	if status == domain.StatusTaken && takenAt != nil {
		updates["actual_taken_time"] = *takenAt
	}
	if err := db.WithContext(ctx).Model(&r).Updates(updates).Error; err != nil {
		return nil, err
	}

	// Re-read so the caller sees the post-update snooze count.
	if err := db.WithContext(ctx).First(&r, "id = ?", r.ID).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// RemindersByEventIDs batch-fetches occurrences whose stored event id is in
// ids, with the owning medicine preloaded. Used by the sync reconciler to
// build its correlation map.
func RemindersByEventIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Reminder, error) {
	if len(ids) == 0 {
		return []domain.Reminder{}, nil
	}
	var out []domain.Reminder
	err := db.WithContext(ctx).Preload("Medicine").Where("event_id IN ?", ids).Find(&out).Error
	return out, err
}

// ListRemindersByUser returns the user's occurrences joined through
// Medicine→Prescription, ordered by scheduled time. Descending order serves
// history views, ascending serves active views. A limit <= 0 disables
// pagination.
func ListRemindersByUser(ctx context.Context, db *gorm.DB, userID string, ascending bool, offset, limit int) ([]domain.Reminder, error) {
	order := "reminders.scheduled_time DESC"
	if ascending {
		order = "reminders.scheduled_time ASC"
	}
	q := db.WithContext(ctx).
		Preload("Medicine").
		Joins("JOIN medicines ON medicines.id = reminders.medicine_id").
		Joins("JOIN prescriptions ON prescriptions.id = medicines.prescription_id").
		Where("prescriptions.user_id = ?", userID).
		Order(order)
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Reminder
	err := q.Find(&out).Error
	return out, err
}

// CountRemindersByUser returns the total occurrence count for pagination.
func CountRemindersByUser(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Joins("JOIN medicines ON medicines.id = reminders.medicine_id").
		Joins("JOIN prescriptions ON prescriptions.id = medicines.prescription_id").
		Where("prescriptions.user_id = ?", userID).
		Count(&total).Error
	return total, err
}
