package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testPaymentHandler(webhookSecret string) *PaymentHandler {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewPaymentHandler(nil, nil, nil, logger, webhookSecret, 300)
}

func TestPaymentsValidation(t *testing.T) {
	h := testPaymentHandler("")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	rec := httptest.NewRecorder()
	h.Payments(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without appointment_id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/payments?appointment_id=42", nil)
	rec = httptest.NewRecorder()
	h.Payments(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed appointment_id, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid appointment_id") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments",
		strings.NewReader(`{"appointment_id":"`+appointmentID+`","amount_cents":0}`))
	rec = httptest.NewRecorder()
	h.Payments(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-positive amount, got %d", rec.Code)
	}
}

func TestStripeWebhookGuards(t *testing.T) {
	unconfigured := testPaymentHandler("")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhooks/stripe", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	unconfigured.StripeWebhook(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without secret, got %d", rec.Code)
	}

	h := testPaymentHandler("whsec_test")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/payments/webhooks/stripe", nil)
	rec = httptest.NewRecorder()
	h.StripeWebhook(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhooks/stripe", strings.NewReader("{}"))
	rec = httptest.NewRecorder()
	h.StripeWebhook(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature header, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhooks/stripe", strings.NewReader("{}"))
	req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	rec = httptest.NewRecorder()
	h.StripeWebhook(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
	}
}
