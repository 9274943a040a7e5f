// Package services – PrescriptionService
//
// This file implements the prescription intake path: the per-user scan quota
// guard and the OCR/AI parser call. The scan image is forwarded for the
// single parser call and never persisted.
package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rxmind/go-reminder-backend/internal/parser"
	"github.com/rxmind/go-reminder-backend/internal/repo"
)

// DefaultScanDailyLimit caps accepted scans per user per trailing 24 hours.
const DefaultScanDailyLimit = 5

// PrescriptionService guards and executes prescription scans.
type PrescriptionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Parser extracts candidate medicines from a scan.
	Parser parser.Parser
	// DailyLimit caps accepted scans per trailing 24h window.
	DailyLimit int

	// Now is a seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewPrescriptionService constructs a PrescriptionService with the default
// quota ceiling.
func NewPrescriptionService(db *gorm.DB, p parser.Parser) *PrescriptionService {
	return &PrescriptionService{DB: db, Parser: p, DailyLimit: DefaultScanDailyLimit}
}

func (s *PrescriptionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ProcessPrescription runs one guarded scan: checks the trailing-24h quota
// (breach fails with ErrRateLimited before any parser work), records the
// accepted request, and calls the parser. An empty candidate list is a legal
// result.
func (s *PrescriptionService) ProcessPrescription(ctx context.Context, userID string, image []byte, imageType, ocrText string) ([]parser.Medicine, error) {
	tr := otel.Tracer("services/PrescriptionService")
	ctx, span := tr.Start(ctx, "ProcessPrescription",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("image.bytes", len(image)),
		),
	)
	defer span.End()

	if len(image) == 0 && strings.TrimSpace(ocrText) == "" {
		return nil, ErrEmptyScan
	}

	limit := s.DailyLimit
	if limit <= 0 {
		limit = DefaultScanDailyLimit
	}
	since := s.now().Add(-24 * time.Hour)
	used, err := repo.CountScansSince(ctx, s.DB, userID, since)
	if err != nil {
		return nil, err
	}
	if used >= int64(limit) {
		return nil, ErrRateLimited
	}

	// Only accepted requests count against the quota.
	if err := repo.CreateScanLog(ctx, s.DB, userID); err != nil {
		return nil, err
	}

	return s.Parser.Parse(ctx, image, imageType, ocrText)
}
