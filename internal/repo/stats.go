// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) on the history endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rxmind/go-reminder-backend/internal/domain"
)

// RemindersStats returns aggregate metadata for a user's dose history: the
// total number of occurrence rows and the greatest UpdatedAt among them.
// When the user has no reminders, count is 0 and maxUpdatedAt is nil.
func RemindersStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Joins("JOIN medicines ON medicines.id = reminders.medicine_id").
		Joins("JOIN prescriptions ON prescriptions.id = medicines.prescription_id").
		Where("prescriptions.user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("reminders.updated_at").Order("reminders.updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
