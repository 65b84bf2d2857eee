package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/clock"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/schedule"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/storage"
)

// ScheduleStore is the slice of the repository the schedule endpoints need.
type ScheduleStore interface {
	GetDoctor(ctx context.Context, id string) (model.Doctor, error)
	GetService(ctx context.Context, id string) (model.CatalogService, error)
	CreateSlots(ctx context.Context, slots []model.Slot) ([]model.Slot, error)
	UpdateSlot(ctx context.Context, slotID string, upd storage.SlotUpdate) (model.Slot, error)
	ListScheduleRows(ctx context.Context, doctorID, serviceID string) ([]schedule.Row, error)
}

type ScheduleHandler struct {
	store  ScheduleStore
	logger *slog.Logger
}

func NewScheduleHandler(store ScheduleStore, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{store: store, logger: logger}
}

type createScheduleRequest struct {
	ServiceID string   `json:"service_id"`
	DoctorID  string   `json:"doctor_id"`
	Date      string   `json:"date"`
	Times     []string `json:"times"`
	Durations []int    `json:"durations"`
	Status    string   `json:"status"`
}

// Schedules handles POST (publish availability) and GET (grouped listings)
// on /api/v1/schedules.
func (h *ScheduleHandler) Schedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *ScheduleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.Date = strings.TrimSpace(req.Date)

	if req.ServiceID == "" || req.DoctorID == "" || req.Date == "" {
		writeError(w, h.logger, apperr.Validation("service_id, doctor_id, and date are required"))
		return
	}
	if len(req.Times) == 0 || len(req.Times) != len(req.Durations) {
		writeError(w, h.logger, apperr.Validation("times and durations must be non-empty and of equal length"))
		return
	}
	status := model.SlotAvailable
	if req.Status != "" {
		if !model.ValidSlotStatus(req.Status) {
			writeError(w, h.logger, apperr.Validation("unrecognized slot status %q", req.Status))
			return
		}
		status = req.Status
	}

	date, err := clock.ParseDate(req.Date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ctx := r.Context()
	svc, err := h.store.GetService(ctx, req.ServiceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if svc.Status != model.ServiceAvailable {
		writeError(w, h.logger, apperr.Conflict("service %s is not available for scheduling", svc.ID))
		return
	}
	doctor, err := h.store.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	slots := make([]model.Slot, 0, len(req.Times))
	for i, raw := range req.Times {
		tod, err := clock.ParseClock(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if err := clock.ValidateDuration(req.Durations[i]); err != nil {
			writeError(w, h.logger, err)
			return
		}
		cand := model.Slot{
			DoctorID:     doctor.ID,
			ServiceID:    svc.ID,
			StartAt:      clock.Combine(date, tod),
			DurationMins: req.Durations[i],
			Status:       status,
		}
		// Slots within one batch must not overlap each other either.
		if hit := schedule.FirstConflict(slots, cand.StartAt, cand.DurationMins); hit != nil {
			writeError(w, h.logger, schedule.ConflictError(*hit))
			return
		}
		slots = append(slots, cand)
	}

	created, err := h.store.CreateSlots(ctx, slots)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	rows := make([]schedule.Row, 0, len(created))
	for _, s := range created {
		rows = append(rows, schedule.Row{Slot: s, DoctorName: doctor.Name, ServiceName: svc.Name})
	}
	views := schedule.Group(rows, schedule.GroupByDoctorServiceDate)
	writeJSON(w, http.StatusCreated, views[0])
}

type updateScheduleRequest struct {
	SlotID       string  `json:"slot_id"`
	Date         *string `json:"date"`
	Time         *string `json:"time"`
	DurationMins *int    `json:"duration_minutes"`
	Status       *string `json:"status"`
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req updateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.SlotID = strings.TrimSpace(req.SlotID)
	if req.SlotID == "" {
		writeError(w, h.logger, apperr.Validation("slot_id is required"))
		return
	}

	var upd storage.SlotUpdate
	if req.Date != nil {
		d, err := clock.ParseDate(strings.TrimSpace(*req.Date))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		upd.Date = &d
	}
	if req.Time != nil {
		tod, err := clock.ParseClock(strings.TrimSpace(*req.Time))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		upd.Clock = &tod
	}
	if req.DurationMins != nil {
		if err := clock.ValidateDuration(*req.DurationMins); err != nil {
			writeError(w, h.logger, err)
			return
		}
		upd.Duration = req.DurationMins
	}
	if req.Status != nil {
		if !model.ValidSlotStatus(*req.Status) {
			writeError(w, h.logger, apperr.Validation("unrecognized slot status %q", *req.Status))
			return
		}
		upd.Status = req.Status
	}

	slot, err := h.store.UpdateSlot(r.Context(), req.SlotID, upd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Re-read the slot's day so the response is the full day-level view.
	rows, err := h.store.ListScheduleRows(r.Context(), slot.DoctorID, slot.ServiceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	date := clock.FormatDate(slot.StartAt)
	for _, view := range schedule.Group(rows, schedule.GroupByDoctorServiceDate) {
		if view.Date == date {
			writeJSON(w, http.StatusOK, view)
			return
		}
	}
	writeError(w, h.logger, apperr.NotFound("slot %s not found", req.SlotID))
}

func (h *ScheduleHandler) list(w http.ResponseWriter, r *http.Request) {
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))

	rows, err := h.store.ListScheduleRows(r.Context(), doctorID, serviceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// The grouping key omits the dimension the query already fixes.
	by := schedule.GroupByDoctorServiceDate
	switch {
	case doctorID != "":
		by = schedule.GroupByServiceDate
	case serviceID != "":
		by = schedule.GroupByDoctorDate
	}
	writeJSON(w, http.StatusOK, schedule.Group(rows, by))
}
