package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/rxmind/go-reminder-backend/internal/parser"
	"github.com/rxmind/go-reminder-backend/internal/services"
)

func multipartScan(t *testing.T, ocrText string, image []byte, imageType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if ocrText != "" {
		if err := mw.WriteField("ocrText", ocrText); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="image"; filename="scan.jpg"`)
		hdr.Set("Content-Type", imageType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestProcessPrescription_Success(t *testing.T) {
	db := newHandlerDB(t)

	var gotImage []byte
	var gotType, gotOCR, gotUser string
	scans := stubScans{process: func(_ context.Context, uid string, image []byte, imageType, ocrText string) ([]parser.Medicine, error) {
		gotUser, gotImage, gotType, gotOCR = uid, image, imageType, ocrText
		return []parser.Medicine{
			{Name: "Ibuprofen", TabletCount: 10, WhenToTake: []int{1, 0, 1}, Notes: "with food"},
		}, nil
	}}
	h := New(stubWriter{}, stubReader{}, scans, stubPrefs{}, db, time.Hour)
	r := newTestRouter(h, db, "u1")

	body, contentType := multipartScan(t, "Tab Ibuprofen 400mg", []byte{0xFF, 0xD8, 0xFF}, "image/jpeg")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/prescriptions/process", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotUser != "u1" || gotOCR != "Tab Ibuprofen 400mg" || gotType != "image/jpeg" {
		t.Fatalf("scan args not forwarded: user=%q ocr=%q type=%q", gotUser, gotOCR, gotType)
	}
	if !bytes.Equal(gotImage, []byte{0xFF, 0xD8, 0xFF}) {
		t.Fatalf("image bytes not forwarded: %v", gotImage)
	}

	var resp struct {
		Medicines []parser.Medicine `json:"medicines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Medicines) != 1 || resp.Medicines[0].Name != "Ibuprofen" {
		t.Fatalf("unexpected medicines: %+v", resp.Medicines)
	}
}

func TestProcessPrescription_TextOnly(t *testing.T) {
	db := newHandlerDB(t)

	var gotImage []byte = []byte("sentinel")
	scans := stubScans{process: func(_ context.Context, _ string, image []byte, _, _ string) ([]parser.Medicine, error) {
		gotImage = image
		return nil, nil
	}}
	h := New(stubWriter{}, stubReader{}, scans, stubPrefs{}, db, time.Hour)
	r := newTestRouter(h, db, "u1")

	body, contentType := multipartScan(t, "plain ocr text", nil, "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/prescriptions/process", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotImage != nil {
		t.Fatalf("expected nil image when no file part, got %v", gotImage)
	}
}

func TestProcessPrescription_ErrorMapping(t *testing.T) {
	db := newHandlerDB(t)

	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"empty scan", services.ErrEmptyScan, http.StatusBadRequest, ErrCodeBadRequest},
		{"quota exhausted", services.ErrRateLimited, http.StatusTooManyRequests, ErrCodeScanLimit},
		{"parser down", &parser.UpstreamError{Status: 503}, http.StatusBadGateway, ErrCodeUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scans := stubScans{process: func(context.Context, string, []byte, string, string) ([]parser.Medicine, error) {
				return nil, tc.err
			}}
			h := New(stubWriter{}, stubReader{}, scans, stubPrefs{}, db, time.Hour)
			r := newTestRouter(h, db, "u1")

			body, contentType := multipartScan(t, "some text", nil, "")
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/prescriptions/process", body)
			req.Header.Set("Content-Type", contentType)
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, rec.Code, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Code != tc.wantBody {
				t.Fatalf("expected code %q, got %q", tc.wantBody, resp.Code)
			}
		})
	}
}

func TestProcessPrescription_ImageTooLarge(t *testing.T) {
	db := newHandlerDB(t)

	called := false
	scans := stubScans{process: func(context.Context, string, []byte, string, string) ([]parser.Medicine, error) {
		called = true
		return nil, nil
	}}
	h := New(stubWriter{}, stubReader{}, scans, stubPrefs{}, db, time.Hour)
	r := newTestRouter(h, db, "u1")

	body, contentType := multipartScan(t, "", make([]byte, maxScanImageBytes+1), "image/png")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/prescriptions/process", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if called {
		t.Fatalf("parser must not run for oversized images")
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Message != "image too large" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}
