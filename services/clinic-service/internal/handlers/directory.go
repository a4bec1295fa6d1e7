package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
	"github.com/medbook-app/medbook/services/clinic-service/internal/storage"
)

// DirectoryHandler serves the reference data appointments point at.
type DirectoryHandler struct {
	dir    *storage.DirectoryRepository
	logger *slog.Logger
}

func NewDirectoryHandler(dir *storage.DirectoryRepository, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{dir: dir, logger: logger}
}

type createPractitionerRequest struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Color     string `json:"color"`
}

func (h *DirectoryHandler) Practitioners(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.dir.ListPractitioners(r.Context())
		if err != nil {
			http.Error(w, "failed to list practitioners", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []model.Practitioner{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req createPractitionerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		id, err := h.dir.CreatePractitioner(r.Context(), &model.Practitioner{
			Name:      req.Name,
			Specialty: strings.TrimSpace(req.Specialty),
			Color:     strings.TrimSpace(req.Color),
		})
		if err != nil {
			http.Error(w, "failed to create practitioner", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"practitioner_id": id})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DirectoryHandler) DeactivatePractitioner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		PractitionerID string `json:"practitioner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PractitionerID = strings.TrimSpace(req.PractitionerID)
	if req.PractitionerID == "" {
		http.Error(w, "practitioner_id required", http.StatusBadRequest)
		return
	}
	if !validUUID(req.PractitionerID) {
		http.Error(w, "invalid practitioner_id", http.StatusBadRequest)
		return
	}
	if err := h.dir.DeactivatePractitioner(r.Context(), req.PractitionerID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "practitioner not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to deactivate practitioner", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"practitioner_id": req.PractitionerID, "active": "false"})
}

type createPatientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *DirectoryHandler) Patients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				limit = n
			}
		}
		list, err := h.dir.ListPatients(r.Context(), limit)
		if err != nil {
			http.Error(w, "failed to list patients", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []model.Patient{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req createPatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		id, err := h.dir.CreatePatient(r.Context(), &model.Patient{
			Name:  req.Name,
			Email: strings.TrimSpace(req.Email),
			Phone: strings.TrimSpace(req.Phone),
		})
		if err != nil {
			http.Error(w, "failed to create patient", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"patient_id": id})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
}

func (h *DirectoryHandler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.dir.ListServices(r.Context())
		if err != nil {
			http.Error(w, "failed to list services", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []model.Service{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req createServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		if req.DurationMinutes <= 0 || req.DurationMinutes > 8*60 {
			http.Error(w, "duration_minutes must be between 1 and 480", http.StatusBadRequest)
			return
		}
		if req.PriceCents < 0 {
			http.Error(w, "price_cents must not be negative", http.StatusBadRequest)
			return
		}
		id, err := h.dir.CreateService(r.Context(), &model.Service{
			Name:            req.Name,
			DurationMinutes: req.DurationMinutes,
			PriceCents:      req.PriceCents,
		})
		if err != nil {
			http.Error(w, "failed to create service", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"service_id": id})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
