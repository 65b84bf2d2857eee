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
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/pricing"
)

type PaymentStore interface {
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	GetSlot(ctx context.Context, id string) (model.Slot, error)
	GetService(ctx context.Context, id string) (model.CatalogService, error)
	ActivePromotions(ctx context.Context, serviceID string, now time.Time) ([]model.Promotion, error)
	CreatePayment(ctx context.Context, appointmentID, amount string) (model.Payment, error)
	TransitionPayment(ctx context.Context, id, next string) (model.Payment, error)
	ListPayments(ctx context.Context, appointmentID string) ([]model.Payment, error)
}

type PaymentHandler struct {
	store  PaymentStore
	logger *slog.Logger
	now    func() time.Time
}

func NewPaymentHandler(store PaymentStore, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{store: store, logger: logger, now: time.Now}
}

type createPaymentRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type paymentResponse struct {
	PaymentID     string `json:"payment_id"`
	AppointmentID string `json:"appointment_id"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toPaymentResponse(p model.Payment) paymentResponse {
	return paymentResponse{
		PaymentID:     p.ID,
		AppointmentID: p.AppointmentID,
		Amount:        p.Amount,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Payments handles POST (create a PENDING payment priced at the service's
// promotion-applied price) and GET (list, optionally ?appointment_id=) on
// /api/v1/payments.
func (h *PaymentHandler) Payments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *PaymentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		writeError(w, h.logger, apperr.Validation("appointment_id is required"))
		return
	}

	appt, err := h.store.GetAppointment(r.Context(), req.AppointmentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	slot, err := h.store.GetSlot(r.Context(), appt.SlotID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	svc, err := h.store.GetService(r.Context(), slot.ServiceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	now := h.now()
	promos, err := h.store.ActivePromotions(r.Context(), svc.ID, now)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	amount, _ := pricing.Apply(svc.Price, promos, now)

	payment, err := h.store.CreatePayment(r.Context(), req.AppointmentID, amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

func (h *PaymentHandler) list(w http.ResponseWriter, r *http.Request) {
	payments, err := h.store.ListPayments(r.Context(), strings.TrimSpace(r.URL.Query().Get("appointment_id")))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, items)
}

type transitionPaymentRequest struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// Transition handles POST /api/v1/payments/transition. Legal moves are
// PENDING->PAID, PENDING->FAILED and PAID->REFUNDED; anything else is a
// conflict.
func (h *PaymentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req transitionPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	if req.PaymentID == "" {
		writeError(w, h.logger, apperr.Validation("payment_id is required"))
		return
	}
	switch req.Status {
	case model.PaymentPaid, model.PaymentFailed, model.PaymentRefunded:
	default:
		writeError(w, h.logger, apperr.Validation("unrecognized status %q", req.Status))
		return
	}

	payment, err := h.store.TransitionPayment(r.Context(), req.PaymentID, req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}
