package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
	"github.com/medbook-app/medbook/services/clinic-service/internal/outbox"
	"github.com/medbook-app/medbook/services/clinic-service/internal/storage"
)

type PaymentHandler struct {
	repo                   *storage.PaymentRepository
	appts                  *storage.AppointmentRepository
	outboxRepo             *outbox.Repository
	logger                 *slog.Logger
	stripeWebhookSecret    string
	stripeWebhookTolerance int64
}

func NewPaymentHandler(repo *storage.PaymentRepository, appts *storage.AppointmentRepository, outboxRepo *outbox.Repository, logger *slog.Logger, stripeWebhookSecret string, toleranceSeconds int64) *PaymentHandler {
	if toleranceSeconds <= 0 {
		toleranceSeconds = 300
	}
	return &PaymentHandler{
		repo:                   repo,
		appts:                  appts,
		outboxRepo:             outboxRepo,
		logger:                 logger,
		stripeWebhookSecret:    stripeWebhookSecret,
		stripeWebhookTolerance: toleranceSeconds,
	}
}

type createPaymentRequest struct {
	AppointmentID string `json:"appointment_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	ProviderRef   string `json:"provider_ref"`
}

func (h *PaymentHandler) Payments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		appointmentID := strings.TrimSpace(r.URL.Query().Get("appointment_id"))
		if appointmentID == "" {
			http.Error(w, "appointment_id required", http.StatusBadRequest)
			return
		}
		if !validUUID(appointmentID) {
			http.Error(w, "invalid appointment_id", http.StatusBadRequest)
			return
		}
		list, err := h.repo.ListForAppointment(r.Context(), appointmentID)
		if err != nil {
			http.Error(w, "failed to list payments", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []model.Payment{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req createPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.AppointmentID = strings.TrimSpace(req.AppointmentID)
		req.Currency = strings.ToLower(strings.TrimSpace(req.Currency))
		if req.AppointmentID == "" {
			http.Error(w, "appointment_id required", http.StatusBadRequest)
			return
		}
		if !validUUID(req.AppointmentID) {
			http.Error(w, "invalid appointment_id", http.StatusBadRequest)
			return
		}
		if req.AmountCents <= 0 {
			http.Error(w, "amount_cents must be positive", http.StatusBadRequest)
			return
		}
		if req.Currency == "" {
			req.Currency = "usd"
		}

		ctx := r.Context()
		if _, err := h.appts.Get(ctx, req.AppointmentID); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "appointment not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load appointment", http.StatusInternalServerError)
			return
		}

		tx, err := h.repo.Begin(ctx)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		defer func() { _ = tx.Rollback(ctx) }()

		id, err := h.repo.Create(ctx, tx, &model.Payment{
			AppointmentID: req.AppointmentID,
			AmountCents:   req.AmountCents,
			Currency:      req.Currency,
			Status:        "pending",
			ProviderRef:   strings.TrimSpace(req.ProviderRef),
		})
		if err != nil {
			http.Error(w, "failed to create payment", http.StatusInternalServerError)
			return
		}
		if err := tx.Commit(ctx); err != nil {
			http.Error(w, "failed to commit", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"payment_id": id})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
