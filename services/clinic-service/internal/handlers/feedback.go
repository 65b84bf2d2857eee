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

type FeedbackStore interface {
	CreateFeedback(ctx context.Context, f model.Feedback) (model.Feedback, error)
	ListFeedback(ctx context.Context, doctorID string) (storage.DoctorFeedback, error)
}

type FeedbackHandler struct {
	store  FeedbackStore
	logger *slog.Logger
}

func NewFeedbackHandler(store FeedbackStore, logger *slog.Logger) *FeedbackHandler {
	return &FeedbackHandler{store: store, logger: logger}
}

type createFeedbackRequest struct {
	DoctorID string `json:"doctor_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

type feedbackResponse struct {
	FeedbackID string `json:"feedback_id"`
	PatientID  string `json:"patient_id"`
	DoctorID   string `json:"doctor_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toFeedbackResponse(f model.Feedback) feedbackResponse {
	return feedbackResponse{
		FeedbackID: f.ID,
		PatientID:  f.PatientID,
		DoctorID:   f.DoctorID,
		Rating:     f.Rating,
		Comment:    f.Comment,
		CreatedAt:  f.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type doctorFeedbackResponse struct {
	DoctorID      string             `json:"doctor_id"`
	AverageRating float64            `json:"average_rating"`
	Items         []feedbackResponse `json:"items"`
}

// Feedback handles POST (submit, identified by X-User-Id) and GET
// ?doctor_id= (list with average rating) on /api/v1/feedback.
func (h *FeedbackHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *FeedbackHandler) create(w http.ResponseWriter, r *http.Request) {
	patientID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if patientID == "" {
		writeError(w, h.logger, apperr.Validation("X-User-Id header is required"))
		return
	}
	var req createFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	if req.DoctorID == "" {
		writeError(w, h.logger, apperr.Validation("doctor_id is required"))
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, h.logger, apperr.Validation("rating must be between 1 and 5"))
		return
	}

	fb, err := h.store.CreateFeedback(r.Context(), model.Feedback{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFeedbackResponse(fb))
}

func (h *FeedbackHandler) list(w http.ResponseWriter, r *http.Request) {
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	if doctorID == "" {
		writeError(w, h.logger, apperr.Validation("doctor_id is required"))
		return
	}
	fb, err := h.store.ListFeedback(r.Context(), doctorID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := doctorFeedbackResponse{
		DoctorID:      doctorID,
		AverageRating: fb.AverageRating,
		Items:         make([]feedbackResponse, 0, len(fb.Items)),
	}
	for _, f := range fb.Items {
		resp.Items = append(resp.Items, toFeedbackResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}
