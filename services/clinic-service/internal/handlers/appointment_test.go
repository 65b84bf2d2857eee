package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/storage"
)

// fakeAppointmentStore mirrors the repository's booking semantics in memory:
// the slot transition is checked and applied under one lock, so concurrent
// bookings of the same slot admit exactly one winner.
type fakeAppointmentStore struct {
	mu     sync.Mutex
	slots  map[string]*model.Slot
	appts  map[string]*model.Appointment
	nextID int
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{
		slots: map[string]*model.Slot{
			"slot-1": {
				ID:           "slot-1",
				DoctorID:     "doc-1",
				ServiceID:    "svc-1",
				StartAt:      time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC),
				DurationMins: 30,
				Status:       model.SlotAvailable,
			},
		},
		appts: map[string]*model.Appointment{},
	}
}

func (f *fakeAppointmentStore) Book(_ context.Context, p storage.BookParams) (model.Appointment, model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, ok := f.slots[p.SlotID]
	if !ok {
		return model.Appointment{}, model.Slot{}, apperr.NotFound("slot %s not found", p.SlotID)
	}
	if slot.Status != model.SlotAvailable {
		return model.Appointment{}, model.Slot{}, apperr.Conflict("slot %s is %s", slot.ID, slot.Status)
	}
	slot.Status = model.SlotBooked

	f.nextID++
	appt := &model.Appointment{
		ID:           fmt.Sprintf("appt-%d", f.nextID),
		SlotID:       slot.ID,
		PatientID:    p.PatientID,
		PatientName:  p.PatientName,
		PatientPhone: p.PatientPhone,
		CreatedAt:    time.Now().UTC(),
	}
	f.appts[appt.ID] = appt
	return *appt, *slot, nil
}

func (f *fakeAppointmentStore) Cancel(_ context.Context, p storage.CancelParams) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	appt, ok := f.appts[p.AppointmentID]
	if !ok {
		return model.Appointment{}, apperr.NotFound("appointment %s not found", p.AppointmentID)
	}
	if appt.Cancelled() {
		return model.Appointment{}, apperr.Conflict("appointment %s is already cancelled", appt.ID)
	}
	now := time.Now().UTC()
	appt.CancelledBy = p.ByUserID
	appt.CancelledAt = &now
	appt.CancelReason = p.Reason
	f.slots[appt.SlotID].Status = model.SlotAvailable
	return *appt, nil
}

func (f *fakeAppointmentStore) ListAppointments(_ context.Context, patientID, doctorID string) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Appointment
	for _, a := range f.appts {
		if patientID != "" && a.PatientID != patientID {
			continue
		}
		if doctorID != "" && f.slots[a.SlotID].DoctorID != doctorID {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func TestBookAppointment(t *testing.T) {
	store := newFakeAppointmentStore()
	h := NewAppointmentHandler(store, nil)

	rec := postJSON(t, h.Appointments, "/api/v1/appointments", `{
		"slot_id": "slot-1",
		"patient_id": "patient-1",
		"patient_name": "Anika"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SlotID != "slot-1" || resp.PatientID != "patient-1" {
		t.Fatalf("response = %+v", resp)
	}
	if store.slots["slot-1"].Status != model.SlotBooked {
		t.Fatalf("slot status = %s, want %s", store.slots["slot-1"].Status, model.SlotBooked)
	}
}

func TestBookAppointmentRejectsNonAvailableSlot(t *testing.T) {
	for _, status := range []string{model.SlotBooked, model.SlotUnavailable} {
		store := newFakeAppointmentStore()
		store.slots["slot-1"].Status = status
		h := NewAppointmentHandler(store, nil)

		rec := postJSON(t, h.Appointments, "/api/v1/appointments", `{
			"slot_id": "slot-1", "patient_id": "patient-1"
		}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("%s: status = %d, want %d", status, rec.Code, http.StatusConflict)
		}
	}
}

func TestCancelRestoresSlotAndSecondCancelConflicts(t *testing.T) {
	store := newFakeAppointmentStore()
	h := NewAppointmentHandler(store, nil)

	rec := postJSON(t, h.Appointments, "/api/v1/appointments", `{
		"slot_id": "slot-1", "patient_id": "patient-1"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("book status = %d: %s", rec.Code, rec.Body)
	}
	var booked appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &booked); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	cancel := func() *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"appointment_id": %q, "reason": "feeling better"}`, booked.AppointmentID)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/cancel", strings.NewReader(body))
		req.Header.Set("X-User-Id", "patient-1")
		rec := httptest.NewRecorder()
		h.Cancel(rec, req)
		return rec
	}

	first := cancel()
	if first.Code != http.StatusOK {
		t.Fatalf("cancel status = %d: %s", first.Code, first.Body)
	}
	if store.slots["slot-1"].Status != model.SlotAvailable {
		t.Fatalf("slot status after cancel = %s, want %s", store.slots["slot-1"].Status, model.SlotAvailable)
	}

	second := cancel()
	if second.Code != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want %d", second.Code, http.StatusConflict)
	}
}

func TestCancelRequiresCallerIdentity(t *testing.T) {
	h := NewAppointmentHandler(newFakeAppointmentStore(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/cancel",
		strings.NewReader(`{"appointment_id": "appt-1"}`))
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestConcurrentBookingAdmitsOneWinner(t *testing.T) {
	store := newFakeAppointmentStore()
	h := NewAppointmentHandler(store, nil)

	const attempts = 16
	codes := make(chan int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"slot_id": "slot-1", "patient_id": "patient-%d"}`, i)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
			rec := httptest.NewRecorder()
			h.Appointments(rec, req)
			codes <- rec.Code
		}(i)
	}
	wg.Wait()
	close(codes)

	var created, conflicted int
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if created != 1 {
		t.Fatalf("created = %d, want exactly 1", created)
	}
	if conflicted != attempts-1 {
		t.Fatalf("conflicted = %d, want %d", conflicted, attempts-1)
	}
	if len(store.appts) != 1 {
		t.Fatalf("stored appointments = %d, want 1", len(store.appts))
	}
}

func TestListAppointmentsFiltersByPatient(t *testing.T) {
	store := newFakeAppointmentStore()
	store.slots["slot-2"] = &model.Slot{
		ID: "slot-2", DoctorID: "doc-2", ServiceID: "svc-1",
		StartAt:      time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC),
		DurationMins: 30, Status: model.SlotAvailable,
	}
	h := NewAppointmentHandler(store, nil)

	for _, body := range []string{
		`{"slot_id": "slot-1", "patient_id": "patient-1"}`,
		`{"slot_id": "slot-2", "patient_id": "patient-2"}`,
	} {
		if rec := postJSON(t, h.Appointments, "/api/v1/appointments", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d: %s", rec.Code, rec.Body)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?patient_id=patient-1", nil)
	rec := httptest.NewRecorder()
	h.Appointments(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var items []appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 1 || items[0].PatientID != "patient-1" {
		t.Fatalf("items = %+v", items)
	}
}
