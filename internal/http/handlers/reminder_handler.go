// Reminder HTTP handlers.
//
// This file exposes REST endpoints for the reminder lifecycle:
//   - POST /reminders            (create from parsed medicines)
//   - GET  /reminders            (active merged view)
//   - GET  /reminders/all        (unfiltered merged view)
//   - POST /reminders/:id/status (taken / missed with optional snooze)
//   - GET  /history              (store history, paginated, ETag support)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. Write endpoints honor
// the Idempotency-Key header so client retries of multi-call calendar
// operations are deduplicated.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rxmind/go-reminder-backend/internal/calendar"
	"github.com/rxmind/go-reminder-backend/internal/domain"
	"github.com/rxmind/go-reminder-backend/internal/http/middleware"
	"github.com/rxmind/go-reminder-backend/internal/parser"
	"github.com/rxmind/go-reminder-backend/internal/repo"
	"github.com/rxmind/go-reminder-backend/internal/services"
	"github.com/rxmind/go-reminder-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ReminderWriter defines the write side of the reminder lifecycle consumed
// by HTTP handlers. Implementations must be safe for concurrent use and
// honor the provided context.
type ReminderWriter interface {
	// CreateReminders persists medicines and writes their calendar events.
	CreateReminders(ctx context.Context, cred calendar.Credential, userID, ocrText string, meds []parser.Medicine) (*services.CreateResult, error)
	// MarkTaken transitions an occurrence to taken.
	MarkTaken(ctx context.Context, cred calendar.Credential, eventID string) (*domain.Reminder, error)
	// MarkMissed transitions an occurrence to missed and reschedules it.
	MarkMissed(ctx context.Context, cred calendar.Credential, eventID string, snooze services.SnoozeSpec) (*domain.Reminder, error)
	// History returns the user's occurrence rows newest-first plus the total.
	History(ctx context.Context, userID string, offset, limit int) ([]domain.Reminder, int64, error)
	// HistoryStats returns aggregate history metadata for ETag generation.
	HistoryStats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// ReminderReader defines the merged calendar/store read views.
type ReminderReader interface {
	// ActiveReminders returns occurrences still awaiting user action.
	ActiveReminders(ctx context.Context, cred calendar.Credential) ([]services.ReminderView, error)
	// AllReminders returns the unfiltered merged list.
	AllReminders(ctx context.Context, cred calendar.Credential) ([]services.ReminderView, error)
}

// PrescriptionProcessor defines guarded prescription intake.
type PrescriptionProcessor interface {
	// ProcessPrescription runs one quota-guarded scan through the parser.
	ProcessPrescription(ctx context.Context, userID string, image []byte, imageType, ocrText string) ([]parser.Medicine, error)
}

// PreferencesManager defines user preference reads and writes.
type PreferencesManager interface {
	// Get returns stored preferences or the defaults.
	Get(ctx context.Context, userID string) (*domain.UserPreferences, error)
	// Save validates and upserts the user's preferences.
	Save(ctx context.Context, userID, morning, afternoon, evening string, allergies []string) (*domain.UserPreferences, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for reminders, prescriptions, and
// preferences. It depends on abstract service interfaces to keep transport
// concerns separate from business logic; the DB handle is only used for
// idempotency bookkeeping.
type Handlers struct {
	writer ReminderWriter
	reader ReminderReader
	scans  PrescriptionProcessor
	prefs  PreferencesManager

	db      *gorm.DB
	idemTTL time.Duration
}

// New constructs a Handlers instance bound to the given services. idemTTL
// bounds how long completed write operations are replayable.
func New(w ReminderWriter, r ReminderReader, p PrescriptionProcessor, prefs PreferencesManager, db *gorm.DB, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{writer: w, reader: r, scans: p, prefs: prefs, db: db, idemTTL: idemTTL}
}

// userID extracts the authenticated user id from Gin context (set by the
// session middleware). If absent, it falls back to "X-User-ID" header (tests
// use it), and finally to "demo-user".
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// mapError translates service and upstream errors into envelope responses.
func mapError(c *gin.Context, err error) {
	var calUp *calendar.UpstreamError
	var parseUp *parser.UpstreamError
	switch {
	case errors.Is(err, services.ErrReminderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reminder not found")
	case errors.Is(err, services.ErrRateLimited):
		fail(c, http.StatusTooManyRequests, ErrCodeScanLimit, "daily scan limit reached; enter the prescription manually")
	case errors.Is(err, services.ErrNoMedicines),
		errors.Is(err, services.ErrBadStatus),
		errors.Is(err, services.ErrEmptyScan):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, calendar.ErrAuthExpired):
		fail(c, http.StatusUnauthorized, ErrCodeAuthExpired, "calendar authorization expired; reconnect your calendar")
	case errors.As(err, &calUp):
		fail(c, http.StatusBadGateway, ErrCodeUpstream, "calendar request failed")
	case errors.As(err, &parseUp):
		fail(c, http.StatusBadGateway, ErrCodeUpstream, "prescription parsing failed")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// DTOs
//

// MedicineInput is one medicine in a create-reminders payload, matching the
// parser's output shape so the UI can forward it unchanged.
type MedicineInput struct {
	Name        string `json:"nameOfMedicine" binding:"required"`
	TabletCount int    `json:"noOfTablets"`
	WhenToTake  []int  `json:"whenToTake"`
	Notes       string `json:"notes"`
}

// CreateRemindersRequest is the JSON payload for POST /reminders.
type CreateRemindersRequest struct {
	OCRText   string          `json:"ocr_text"`
	Medicines []MedicineInput `json:"medicines" binding:"required"`
}

// UpdateStatusRequest is the JSON payload for POST /reminders/:id/status.
type UpdateStatusRequest struct {
	Status string              `json:"status" binding:"required"`
	Snooze services.SnoozeSpec `json:"snooze"`
}

// HistoryEntry is one dose occurrence in the history response.
type HistoryEntry struct {
	ID              string     `json:"id"`
	MedicineName    string     `json:"medicine_name"`
	ScheduledTime   time.Time  `json:"scheduled_time"`
	Slot            string     `json:"slot"`
	Status          string     `json:"status"`
	ActualTakenTime *time.Time `json:"actual_taken_time,omitempty"`
	SnoozeCount     int        `json:"snooze_count"`
}

// HistoryResponse wraps a page of history entries.
type HistoryResponse struct {
	Reminders []HistoryEntry `json:"reminders"`
	Total     int64          `json:"total"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

//
// Handlers
//

// CreateReminders godoc
// @ID          createReminders
// @Summary     Create reminders from parsed medicines
// @Description Expands each medicine into per-slot dose series, writes recurring calendar events, and records the occurrences. Honors Idempotency-Key.
// @Tags        Reminders
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Client retry deduplication key"
// @Param       body             body    handlers.CreateRemindersRequest  true  "Parsed medicines"
//
// @Success     201  {object}  services.CreateResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Session or calendar auth invalid"
// @Failure     502  {object}  handlers.ErrorResponse  "Calendar unavailable"
// @Router      /reminders [post]
func (h *Handlers) CreateReminders(c *gin.Context) {
	uid := userID(c)

	if h.serveReplay(c, uid) {
		return
	}

	var req CreateRemindersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	meds := make([]parser.Medicine, 0, len(req.Medicines))
	for _, m := range req.Medicines {
		meds = append(meds, parser.Medicine{
			Name:        m.Name,
			TabletCount: m.TabletCount,
			WhenToTake:  m.WhenToTake,
			Notes:       m.Notes,
		})
	}

	res, err := h.writer.CreateReminders(c.Request.Context(), middleware.CredentialFrom(c), uid, req.OCRText, meds)
	if err != nil {
		mapError(c, err)
		return
	}

	h.recordIdempotency(c, uid, res.PrescriptionID, http.StatusCreated)
	ok(c, http.StatusCreated, res)
}

// ListReminders godoc
// @ID          listReminders
// @Summary     List active reminders
// @Description Merged calendar/store view of occurrences still awaiting action, in calendar order.
// @Tags        Reminders
// @Produce     json
//
// @Success     200  {array}   services.ReminderView
// @Failure     401  {object}  handlers.ErrorResponse  "Calendar auth expired"
// @Failure     502  {object}  handlers.ErrorResponse  "Calendar unavailable"
// @Router      /reminders [get]
func (h *Handlers) ListReminders(c *gin.Context) {
	views, err := h.reader.ActiveReminders(c.Request.Context(), middleware.CredentialFrom(c))
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"reminders": views})
}

// ListAllReminders godoc
// @ID          listAllReminders
// @Summary     List all reminders in the window
// @Description Unfiltered merged calendar/store view, including settled occurrences.
// @Tags        Reminders
// @Produce     json
//
// @Success     200  {array}   services.ReminderView
// @Failure     502  {object}  handlers.ErrorResponse  "Calendar unavailable"
// @Router      /reminders/all [get]
func (h *Handlers) ListAllReminders(c *gin.Context) {
	views, err := h.reader.AllReminders(c.Request.Context(), middleware.CredentialFrom(c))
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"reminders": views})
}

// UpdateReminderStatus godoc
// @ID          updateReminderStatus
// @Summary     Mark a dose taken or missed
// @Description Transitions the occurrence behind the event id. "missed" additionally reschedules per the snooze spec. Honors Idempotency-Key.
// @Tags        Reminders
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "External calendar event id (instance suffix tolerated)"
// @Param       body  body  handlers.UpdateStatusRequest  true  "New status"
//
// @Success     200  {object}  domain.Reminder
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Reminder not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Calendar unavailable"
// @Router      /reminders/{id}/status [post]
func (h *Handlers) UpdateReminderStatus(c *gin.Context) {
	uid := userID(c)
	eventID := c.Param("id")

	if h.serveReplay(c, uid) {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	cred := middleware.CredentialFrom(c)

	var r *domain.Reminder
	var err error
	switch strings.ToLower(strings.TrimSpace(req.Status)) {
	case domain.StatusTaken:
		r, err = h.writer.MarkTaken(ctx, cred, eventID)
	case domain.StatusMissed:
		r, err = h.writer.MarkMissed(ctx, cred, eventID, req.Snooze)
	default:
		mapError(c, services.ErrBadStatus)
		return
	}
	if err != nil {
		mapError(c, err)
		return
	}

	middleware.CountStatusTransition(r.Status)
	h.recordIdempotency(c, uid, r.ID, http.StatusOK)
	ok(c, http.StatusOK, r)
}

// GetHistory godoc
// @ID          getHistory
// @Summary     Dose history (paginated)
// @Description Store-side occurrence history newest-first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Reminders
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       limit          query   int     false "Page size"    minimum(1) maximum(100) default(20)
// @Param       offset         query   int     false "Page offset"  minimum(0) default(0)
//
// @Success     200  {object} handlers.HistoryResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /history [get]
func (h *Handlers) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	limit, offset := utils.ClampLimitOffset(
		utils.AtoiDefault(c.Query("limit"), 20),
		utils.AtoiDefault(c.Query("offset"), 0),
		20, 100,
	)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.writer.HistoryStats(ctx, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"history:%s:%d:%d"`, uid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.writer.History(ctx, uid, offset, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	entries := make([]HistoryEntry, 0, len(items))
	for _, r := range items {
		entries = append(entries, HistoryEntry{
			ID:              r.ID,
			MedicineName:    r.Medicine.Name,
			ScheduledTime:   r.ScheduledTime,
			Slot:            r.Slot,
			Status:          r.Status,
			ActualTakenTime: r.ActualTakenTime,
			SnoozeCount:     r.SnoozeCount,
		})
	}
	ok(c, http.StatusOK, HistoryResponse{Reminders: entries, Total: total, Limit: limit, Offset: offset})
}

//
// Idempotency plumbing
//

// serveReplay short-circuits a detected replay with the persisted outcome.
func (h *Handlers) serveReplay(c *gin.Context, uid string) bool {
	if !middleware.IsReplay(c) || h.db == nil {
		return false
	}
	key, okKey := middleware.GetIdempotencyKey(c)
	if !okKey {
		return false
	}
	scope := c.FullPath()
	rec, err := repo.GetIdempotency(c.Request.Context(), h.db, uid, scope, key, time.Now().UTC())
	if err != nil {
		return false
	}
	ok(c, rec.Status, gin.H{"replayed": true, "ref_id": rec.RefID})
	return true
}

// recordIdempotency persists the completed operation under the request's key
// so retries replay instead of re-executing. Best effort: a race with a
// concurrent retry is benign.
func (h *Handlers) recordIdempotency(c *gin.Context, uid, refID string, status int) {
	if h.db == nil {
		return
	}
	key, okKey := middleware.GetIdempotencyKey(c)
	if !okKey {
		return
	}
	scope := c.FullPath()
	if _, err := repo.CreateIdempotency(c.Request.Context(), h.db, uid, scope, key, refID, status, h.idemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record failed")
	}
}
