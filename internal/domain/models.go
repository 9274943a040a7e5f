// Package domain defines the persistence models for prescriptions, medicines,
// reminders, and user preferences. These types are mapped with GORM and form
// the core data layer of the reminder backend.
package domain

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Reminder status values. The reminder store records the authoritative status
// of each dose occurrence; the external calendar only mirrors it for display.
const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusTaken     = "taken"
	StatusMissed    = "missed"
)

// Slot labels for the three fixed times of day a medicine may be scheduled at.
const (
	SlotMorning   = "Morning"
	SlotAfternoon = "Afternoon"
	SlotEvening   = "Evening"
)

// Prescription represents one processed prescription scan owned by a user.
// Rows are immutable after creation and only removed on account deletion.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the owner; indexed for efficient retrieval.
//   - OCRText: raw OCR output captured at scan time (transient, may be blank).
//   - ImageURL: optional pointer to externally stored scan imagery.
//   - CreatedAt: timestamp managed by GORM.
type Prescription struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_prescriptions"`
	OCRText   string    `json:"-"          gorm:"type:text"`
	ImageURL  string    `json:"image_url,omitempty" gorm:"type:varchar(512)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Prescription.
func (Prescription) TableName() string { return "prescriptions" }

// Medicine is one prescribed drug extracted from a prescription. The fixed
// three-position time-of-day vector is stored as three 0/1 columns in slot
// order (morning, afternoon, evening). A vector of all zeros is legal but
// degenerate: no dose occurrences are generated for it.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - PrescriptionID: foreign key to the owning prescription (indexed).
//   - Name: free-text medicine name as extracted by the parser.
//   - TabletCount: total tablets prescribed; drives series length.
//   - Morning/Afternoon/Evening: 0/1 slot indicators (enforced by DB check).
//   - Notes: optional free-text notes surfaced on reminders.
type Medicine struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	PrescriptionID string    `json:"prescription_id" gorm:"type:char(36);not null;index:idx_prescription_medicines"`
	Name           string    `json:"name"            gorm:"type:varchar(255);not null"`
	TabletCount    int       `json:"tablet_count"    gorm:"not null;check:tablet_count >= 0"`
	Morning        int       `json:"morning"         gorm:"not null;check:morning IN (0,1)"`
	Afternoon      int       `json:"afternoon"       gorm:"not null;check:afternoon IN (0,1)"`
	Evening        int       `json:"evening"         gorm:"not null;check:evening IN (0,1)"`
	Notes          string    `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`

	// Prescription is the owning scan. Medicines are cascade-deleted if the
	// prescription is removed.
	Prescription Prescription `json:"-" gorm:"foreignKey:PrescriptionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Medicine.
func (Medicine) TableName() string { return "medicines" }

// TimeOfDay returns the slot vector in expansion order.
func (m Medicine) TimeOfDay() [3]int { return [3]int{m.Morning, m.Afternoon, m.Evening} }

// Reminder is the atomic schedulable unit: one dose occurrence of a medicine.
// Rows are append-only; rescheduling a missed dose creates a new row chained
// to the original via RescheduledFrom rather than overwriting it.
//
// EventID holds the external calendar identifier in normalized form (the
// provider's per-instance recurrence suffix stripped), which is the join key
// used by the sync reconciler. It is empty until the external write succeeds.
//
// The unique index on (medicine_id, scheduled_time, slot) closes the
// duplicate-create race under concurrent requests; callers treat a violation
// as a benign duplicate.
type Reminder struct {
	ID              string     `json:"id"             gorm:"type:char(36);primaryKey"`
	MedicineID      string     `json:"medicine_id"    gorm:"type:char(36);not null;index;uniqueIndex:ux_medicine_slot_time,priority:1"`
	EventID         string     `json:"event_id"       gorm:"type:varchar(255);index:idx_reminder_event"`
	ScheduledTime   time.Time  `json:"scheduled_time" gorm:"not null;uniqueIndex:ux_medicine_slot_time,priority:2"`
	Slot            string     `json:"slot"           gorm:"type:varchar(16);not null;uniqueIndex:ux_medicine_slot_time,priority:3"`
	Status          string     `json:"status"         gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','scheduled','taken','missed')"`
	ActualTakenTime *time.Time `json:"actual_taken_time,omitempty"`
	SnoozeCount     int        `json:"snooze_count"   gorm:"not null;default:0"`
	RescheduledFrom *string    `json:"rescheduled_from,omitempty" gorm:"type:char(36)"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Medicine is the prescribed drug this occurrence belongs to.
	Medicine Medicine `json:"-" gorm:"foreignKey:MedicineID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Reminder.
func (Reminder) TableName() string { return "reminders" }

// Active reports whether the occurrence still awaits a user action.
func (r Reminder) Active() bool {
	return r.Status == StatusPending || r.Status == StatusScheduled
}

// UserPreferences stores per-user scheduling defaults: the clock times for
// the three slots (HH:MM, 24h) and known allergy substrings. One row per
// user, created lazily with defaults on first read and upserted on save.
type UserPreferences struct {
	UserID        string    `json:"user_id"        gorm:"type:varchar(64);primaryKey"`
	MorningTime   string    `json:"morning_time"   gorm:"type:varchar(5);not null;default:'08:00'"`
	AfternoonTime string    `json:"afternoon_time" gorm:"type:varchar(5);not null;default:'13:00'"`
	EveningTime   string    `json:"evening_time"   gorm:"type:varchar(5);not null;default:'20:00'"`
	Allergies     string    `json:"-"              gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserPreferences.
func (UserPreferences) TableName() string { return "user_preferences" }

// AllergyList splits the stored comma-joined allergy string into a slice.
// Empty storage yields an empty (non-nil) slice for stable JSON output.
func (p UserPreferences) AllergyList() []string {
	if strings.TrimSpace(p.Allergies) == "" {
		return []string{}
	}
	parts := strings.Split(p.Allergies, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinAllergies renders an allergy slice into the stored comma-joined form.
func JoinAllergies(allergies []string) string {
	kept := make([]string, 0, len(allergies))
	for _, a := range allergies {
		if t := strings.TrimSpace(a); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, ",")
}

// ScanLog records one accepted prescription-scan request. The quota guard
// counts rows in the trailing 24-hour window to bound parser usage per user.
type ScanLog struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_scans,priority:1"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_user_scans,priority:2"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for ScanLog.
func (ScanLog) TableName() string { return "scan_logs" }
