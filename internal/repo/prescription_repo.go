// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for Prescription
// and Medicine rows created during reminder setup.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rxmind/go-reminder-backend/internal/domain"
)

// CreatePrescription inserts a new prescription row for a processed scan.
func CreatePrescription(ctx context.Context, db *gorm.DB, userID, ocrText, imageURL string) (*domain.Prescription, error) {
	p := &domain.Prescription{
		ID:        uuid.NewString(),
		UserID:    userID,
		OCRText:   ocrText,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
	}
	return p, db.WithContext(ctx).Create(p).Error
}

// CreateMedicine inserts one extracted medicine under a prescription. The
// vector is the fixed [morning, afternoon, evening] indicator triple.
func CreateMedicine(ctx context.Context, db *gorm.DB, prescriptionID, name string, tabletCount int, vector [3]int, notes string) (*domain.Medicine, error) {
	m := &domain.Medicine{
		ID:             uuid.NewString(),
		PrescriptionID: prescriptionID,
		Name:           name,
		TabletCount:    tabletCount,
		Morning:        vector[0],
		Afternoon:      vector[1],
		Evening:        vector[2],
		Notes:          notes,
		CreatedAt:      time.Now().UTC(),
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// GetMedicine fetches a medicine by ID.
func GetMedicine(ctx context.Context, db *gorm.DB, id string) (*domain.Medicine, error) {
	var m domain.Medicine
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
