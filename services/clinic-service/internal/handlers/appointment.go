package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/storage"
)

type AppointmentStore interface {
	Book(ctx context.Context, p storage.BookParams) (model.Appointment, model.Slot, error)
	Cancel(ctx context.Context, p storage.CancelParams) (model.Appointment, error)
	ListAppointments(ctx context.Context, patientID, doctorID string) ([]model.Appointment, error)
}

type AppointmentHandler struct {
	store  AppointmentStore
	logger *slog.Logger
}

func NewAppointmentHandler(store AppointmentStore, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{store: store, logger: logger}
}

type createAppointmentRequest struct {
	SlotID       string `json:"slot_id"`
	PatientID    string `json:"patient_id"`
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
}

type appointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	SlotID        string `json:"slot_id"`
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	PatientPhone  string `json:"patient_phone"`
	CancelledBy   string `json:"cancelled_by,omitempty"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CancelReason  string `json:"cancel_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		AppointmentID: a.ID,
		SlotID:        a.SlotID,
		PatientID:     a.PatientID,
		PatientName:   a.PatientName,
		PatientPhone:  a.PatientPhone,
		CancelledBy:   a.CancelledBy,
		CancelReason:  a.CancelReason,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.CancelledAt != nil {
		resp.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// Appointments handles POST (book) and GET (list) on /api/v1/appointments.
func (h *AppointmentHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.SlotID = strings.TrimSpace(req.SlotID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.SlotID == "" || req.PatientID == "" {
		writeError(w, h.logger, apperr.Validation("slot_id and patient_id are required"))
		return
	}

	appt, _, err := h.store.Book(r.Context(), storage.BookParams{
		SlotID:       req.SlotID,
		PatientID:    req.PatientID,
		PatientName:  strings.TrimSpace(req.PatientName),
		PatientPhone: strings.TrimSpace(req.PatientPhone),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

type cancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	byUserID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if byUserID == "" {
		writeError(w, h.logger, apperr.Validation("missing X-User-Id"))
		return
	}

	var req cancelAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		writeError(w, h.logger, apperr.Validation("appointment_id is required"))
		return
	}

	appt, err := h.store.Cancel(r.Context(), storage.CancelParams{
		AppointmentID: req.AppointmentID,
		ByUserID:      byUserID,
		Reason:        strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	patientID := strings.TrimSpace(r.URL.Query().Get("patient_id"))
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))

	appts, err := h.store.ListAppointments(r.Context(), patientID, doctorID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, items)
}
