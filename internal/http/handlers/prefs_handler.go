// Preference HTTP handlers.
//
// GET /preferences returns the user's slot clock times and allergies,
// falling back to defaults when nothing has been saved. POST /preferences
// validates and upserts them.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rxmind/go-reminder-backend/internal/schedule"
)

// PreferencesPayload is the wire shape for both directions of /preferences.
type PreferencesPayload struct {
	MorningTime   string   `json:"morning_time"`
	AfternoonTime string   `json:"afternoon_time"`
	EveningTime   string   `json:"evening_time"`
	Allergies     []string `json:"allergies"`
}

// GetPreferences godoc
// @ID          getPreferences
// @Summary     Read scheduling preferences
// @Tags        Preferences
// @Produce     json
//
// @Success     200  {object}  handlers.PreferencesPayload
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /preferences [get]
func (h *Handlers) GetPreferences(c *gin.Context) {
	p, err := h.prefs.Get(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, PreferencesPayload{
		MorningTime:   p.MorningTime,
		AfternoonTime: p.AfternoonTime,
		EveningTime:   p.EveningTime,
		Allergies:     p.AllergyList(),
	})
}

// SavePreferences godoc
// @ID          savePreferences
// @Summary     Save scheduling preferences
// @Description Slot times are 24h HH:MM; a blank slot keeps its default.
// @Tags        Preferences
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.PreferencesPayload  true  "Preferences"
//
// @Success     200  {object}  handlers.PreferencesPayload
// @Failure     400  {object}  handlers.ErrorResponse "Malformed slot time"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /preferences [post]
func (h *Handlers) SavePreferences(c *gin.Context) {
	var req PreferencesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	p, err := h.prefs.Save(c.Request.Context(), userID(c), req.MorningTime, req.AfternoonTime, req.EveningTime, req.Allergies)
	if err != nil {
		if errors.Is(err, schedule.ErrBadClock) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, PreferencesPayload{
		MorningTime:   p.MorningTime,
		AfternoonTime: p.AfternoonTime,
		EveningTime:   p.EveningTime,
		Allergies:     p.AllergyList(),
	})
}
