// Package services – PreferencesService
//
// This file implements user preference reads and writes: the three slot
// clock times and the allergy list. Reads fall back to defaults when no row
// exists; the row is only materialized on save.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rxmind/go-reminder-backend/internal/domain"
	"github.com/rxmind/go-reminder-backend/internal/repo"
	"github.com/rxmind/go-reminder-backend/internal/schedule"
)

// PreferencesService reads and writes per-user scheduling preferences.
type PreferencesService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewPreferencesService constructs a PreferencesService.
func NewPreferencesService(db *gorm.DB) *PreferencesService {
	return &PreferencesService{DB: db}
}

// Get returns the stored preferences or the defaults when the user has not
// saved any.
func (s *PreferencesService) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	p, err := repo.GetPreferences(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		d := schedule.DefaultPreferences()
		return &domain.UserPreferences{
			UserID:        userID,
			MorningTime:   d.MorningTime,
			AfternoonTime: d.AfternoonTime,
			EveningTime:   d.EveningTime,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Save validates the slot clocks and upserts the user's row. A blank clock
// keeps the default for that slot; a malformed one fails with ErrBadClock.
func (s *PreferencesService) Save(ctx context.Context, userID, morning, afternoon, evening string, allergies []string) (*domain.UserPreferences, error) {
	d := schedule.DefaultPreferences()
	p := &domain.UserPreferences{UserID: userID, Allergies: domain.JoinAllergies(allergies)}

	var err error
	if p.MorningTime, err = pickClock(morning, d.MorningTime); err != nil {
		return nil, err
	}
	if p.AfternoonTime, err = pickClock(afternoon, d.AfternoonTime); err != nil {
		return nil, err
	}
	if p.EveningTime, err = pickClock(evening, d.EveningTime); err != nil {
		return nil, err
	}

	if err := repo.UpsertPreferences(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// pickClock validates a slot clock, keeping the default for blank input.
func pickClock(val, fallback string) (string, error) {
	if val == "" {
		return fallback, nil
	}
	if _, _, err := schedule.ParseClock(val); err != nil {
		return "", err
	}
	return val, nil
}
