// Package parser is the boundary to the OCR/AI prescription parser: a
// function from (image, raw OCR text) to a list of candidate medicine
// records, possibly imprecise and possibly empty. The image is forwarded for
// the single call and never retained.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Medicine is one candidate medication extracted from a prescription.
// WhenToTake is the fixed [morning, afternoon, evening] indicator vector.
type Medicine struct {
	Name        string `json:"nameOfMedicine"`
	TabletCount int    `json:"noOfTablets"`
	WhenToTake  []int  `json:"whenToTake"`
	Notes       string `json:"notes,omitempty"`
}

// Parser extracts candidate medicines from a prescription scan.
type Parser interface {
	Parse(ctx context.Context, image []byte, imageType, ocrText string) ([]Medicine, error)
}

// UpstreamError is a non-success response from the remote parser service.
type UpstreamError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("parser: request failed: %s", e.Body)
	}
	return fmt.Sprintf("parser: request failed with status %d", e.Status)
}

// Remote calls an HTTP parsing service with the scan image and OCR text as a
// multipart form and decodes the candidate medicine list from its response.
type Remote struct {
	Endpoint string
	APIKey   string
	HTTP     *http.Client
}

// NewRemote constructs a Remote parser with a generous timeout; AI-backed
// extraction is slow.
func NewRemote(endpoint, apiKey string) *Remote {
	return &Remote{
		Endpoint: endpoint,
		APIKey:   apiKey,
		HTTP:     &http.Client{Timeout: 60 * time.Second},
	}
}

// Parse submits the scan and returns the extracted candidates. An empty list
// is a legal result. Candidate records are normalized before being returned:
// the slot vector is coerced to exactly three 0/1 entries and shouty OCR
// names are re-cased for display.
func (r *Remote) Parse(ctx context.Context, image []byte, imageType, ocrText string) ([]Medicine, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("image", "prescription")
	if err != nil {
		return nil, fmt.Errorf("parser: build form: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("parser: build form: %w", err)
	}
	if err := mw.WriteField("imageType", imageType); err != nil {
		return nil, fmt.Errorf("parser: build form: %w", err)
	}
	if err := mw.WriteField("ocrText", ocrText); err != nil {
		return nil, fmt.Errorf("parser: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("parser: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("parser: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	httpc := r.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var body struct {
		Medicines []Medicine `json:"medicines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: "malformed response body"}
	}

	out := make([]Medicine, 0, len(body.Medicines))
	for _, m := range body.Medicines {
		out = append(out, Normalize(m))
	}
	return out, nil
}

// Normalize coerces a candidate into the shape the rest of the system
// assumes: exactly three 0/1 slot indicators, a non-negative tablet count,
// and a display-cased name.
func Normalize(m Medicine) Medicine {
	vec := make([]int, 3)
	for i := 0; i < len(m.WhenToTake) && i < 3; i++ {
		if m.WhenToTake[i] == 1 {
			vec[i] = 1
		}
	}
	m.WhenToTake = vec

	if m.TabletCount < 0 {
		m.TabletCount = 0
	}
	m.Name = DisplayName(m.Name)
	m.Notes = strings.TrimSpace(m.Notes)
	return m
}

// titleCaser re-cases medicine names for display.
var titleCaser = cases.Title(language.English)

// DisplayName trims a parsed medicine name and re-cases it when OCR yielded
// an all-upper or all-lower string ("METFORMIN 500MG" -> "Metformin 500Mg").
// Mixed-case names are assumed intentional and kept as-is.
func DisplayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return name
	}
	if name == strings.ToUpper(name) || name == strings.ToLower(name) {
		return titleCaser.String(strings.ToLower(name))
	}
	return name
}
