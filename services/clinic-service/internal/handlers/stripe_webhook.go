package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medbook-app/medbook/services/clinic-service/internal/outbox"
	"github.com/medbook-app/medbook/services/clinic-service/internal/storage"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeWebhook handles Stripe webhooks (no JWT auth; signature verification is the auth).
// Gateway should expose this path publicly.
func (h *PaymentHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if strings.TrimSpace(h.stripeWebhookSecret) == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, time.Duration(h.stripeWebhookTolerance)*time.Second)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("payment provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
	)

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Idempotency: ignore replayed Stripe events.
	if err := h.repo.InsertProviderEvent(ctx, tx, storage.ProviderEvent{
		Provider:        "stripe",
		ProviderEventID: evt.ID,
		EventType:       evtType,
		Payload:         body,
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicateProviderEvent) {
			h.logger.Info("payment provider event duplicate ignored", "provider", "stripe", "provider_event_id", evt.ID)
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			_ = tx.Commit(ctx)
			return
		}
		http.Error(w, "failed to record provider event", http.StatusInternalServerError)
		return
	}

	switch evtType {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
			h.logger.Error("stripe: invalid payment intent payload", "err", err)
			break
		}

		payment, err := h.repo.MarkPaid(ctx, tx, intent.ID)
		if err != nil {
			if storage.IsNotFound(err) {
				h.logger.Warn("stripe: payment intent has no matching payment", "provider_ref", intent.ID)
				break
			}
			http.Error(w, "failed to mark payment paid", http.StatusInternalServerError)
			return
		}

		payload, err := json.Marshal(map[string]any{
			"payment_id":     payment.ID,
			"appointment_id": payment.AppointmentID,
			"amount_cents":   payment.AmountCents,
			"currency":       payment.Currency,
			"provider_ref":   intent.ID,
		})
		if err != nil {
			http.Error(w, "failed to build event payload", http.StatusInternalServerError)
			return
		}
		if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
			AggregateType: "payment",
			AggregateID:   payment.ID,
			EventType:     outbox.TopicPaymentReceived,
			Payload:       payload,
		}); err != nil {
			http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
			return
		}

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
			h.logger.Error("stripe: invalid payment intent payload", "err", err)
			break
		}
		h.logger.Warn("stripe: payment failed", "provider_ref", intent.ID)

	default:
		h.logger.Info("stripe: event ignored", "event_type", evtType)
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
