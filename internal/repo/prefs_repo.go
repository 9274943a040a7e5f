// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for per-user
// preferences (slot clock times and allergies).
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rxmind/go-reminder-backend/internal/domain"
)

// GetPreferences returns the stored preferences row or ErrNotFound. Callers
// fall back to defaults when no row exists (lazy creation happens on save,
// not on read).
func GetPreferences(ctx context.Context, db *gorm.DB, userID string) (*domain.UserPreferences, error) {
	var p domain.UserPreferences
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPreferences creates or replaces the user's preferences row.
func UpsertPreferences(ctx context.Context, db *gorm.DB, p *domain.UserPreferences) error {
	p.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"morning_time", "afternoon_time", "evening_time", "allergies", "updated_at"}),
		}).
		Create(p).Error
}
