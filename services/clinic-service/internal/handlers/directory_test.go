package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testDirectoryHandler() *DirectoryHandler {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewDirectoryHandler(nil, logger)
}

func TestPractitionerCreateValidation(t *testing.T) {
	h := testDirectoryHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/practitioners", strings.NewReader(`{"specialty":"dermatology"}`))
	rec := httptest.NewRecorder()
	h.Practitioners(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without name, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/practitioners", nil)
	rec = httptest.NewRecorder()
	h.Practitioners(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for DELETE, got %d", rec.Code)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	h := testDirectoryHandler()

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"duration_minutes":30}`},
		{"zero duration", `{"name":"Checkup","duration_minutes":0}`},
		{"too long", `{"name":"Checkup","duration_minutes":600}`},
		{"negative price", `{"name":"Checkup","duration_minutes":30,"price_cents":-100}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/services", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		h.Services(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestDeactivatePractitionerValidation(t *testing.T) {
	h := testDirectoryHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/practitioners/deactivate", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.DeactivatePractitioner(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without practitioner_id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/practitioners/deactivate",
		strings.NewReader(`{"practitioner_id":"not-a-uuid"}`))
	rec = httptest.NewRecorder()
	h.DeactivatePractitioner(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed practitioner_id, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid practitioner_id") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
