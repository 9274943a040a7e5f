// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ScanLog
// model backing the per-user scan quota guard.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rxmind/go-reminder-backend/internal/domain"
)

// CountScansSince returns how many accepted scan requests the user has made
// at or after the given instant.
func CountScansSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ScanLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&total).Error
	return total, err
}

// CreateScanLog records one accepted scan request.
func CreateScanLog(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).Create(&domain.ScanLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}).Error
}
