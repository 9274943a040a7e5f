// Prescription HTTP handlers.
//
// POST /prescriptions/process accepts a multipart prescription scan (image
// plus raw OCR text), runs it through the quota-guarded parser, and returns
// the extracted medicine candidates for the user to review before reminders
// are created. The image is forwarded to the parser and never stored.
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxScanImageBytes caps the accepted prescription image size (8 MiB).
const maxScanImageBytes = 8 << 20

// ProcessPrescriptionResponse wraps the extracted candidates.
type ProcessPrescriptionResponse struct {
	Medicines any `json:"medicines"`
}

// ProcessPrescription godoc
// @ID          processPrescription
// @Summary     Extract medicines from a prescription scan
// @Description Runs the scan through OCR/AI extraction. Limited to a fixed number of scans per user per 24 hours.
// @Tags        Prescriptions
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       image    formData  file    false "Prescription image"
// @Param       ocrText  formData  string  false "Raw OCR text"
//
// @Success     200  {object}  handlers.ProcessPrescriptionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     429  {object}  handlers.ErrorResponse  "Scan limit reached"
// @Failure     502  {object}  handlers.ErrorResponse  "Parser unavailable"
// @Router      /prescriptions/process [post]
func (h *Handlers) ProcessPrescription(c *gin.Context) {
	ocrText := c.PostForm("ocrText")

	var image []byte
	imageType := ""
	if fh, err := c.FormFile("image"); err == nil && fh != nil {
		if fh.Size > maxScanImageBytes {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image too large")
			return
		}
		f, err := fh.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable image")
			return
		}
		defer f.Close()
		image, err = io.ReadAll(io.LimitReader(f, maxScanImageBytes))
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable image")
			return
		}
		imageType = fh.Header.Get("Content-Type")
	}

	meds, err := h.scans.ProcessPrescription(c.Request.Context(), userID(c), image, imageType, ocrText)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, ProcessPrescriptionResponse{Medicines: meds})
}
