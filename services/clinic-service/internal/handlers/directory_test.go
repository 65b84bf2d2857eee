package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

type fakeDirectoryStore struct {
	users   map[string]model.User
	doctors map[string]model.Doctor
}

func newFakeDirectoryStore() *fakeDirectoryStore {
	return &fakeDirectoryStore{
		users:   map[string]model.User{},
		doctors: map[string]model.Doctor{},
	}
}

func (f *fakeDirectoryStore) CreateUser(_ context.Context, u model.User) (model.User, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return model.User{}, apperr.Conflict("email %s is already registered", u.Email)
		}
	}
	u.ID = "user-1"
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeDirectoryStore) GetUser(_ context.Context, id string) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user %s not found", id)
	}
	return u, nil
}

func (f *fakeDirectoryStore) SoftDeleteUser(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return apperr.NotFound("user %s not found", id)
	}
	delete(f.users, id)
	return nil
}

func (f *fakeDirectoryStore) CreateDoctor(_ context.Context, d model.Doctor) (model.Doctor, error) {
	u, ok := f.users[d.UserID]
	if !ok {
		return model.Doctor{}, apperr.NotFound("user %s not found", d.UserID)
	}
	if u.Role != model.RoleDoctor {
		return model.Doctor{}, apperr.Conflict("user %s is not a doctor", d.UserID)
	}
	d.ID = "doc-1"
	d.Name = u.Name
	f.doctors[d.ID] = d
	return d, nil
}

func (f *fakeDirectoryStore) GetDoctor(_ context.Context, id string) (model.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return model.Doctor{}, apperr.NotFound("doctor %s not found", id)
	}
	return d, nil
}

func (f *fakeDirectoryStore) ListDoctors(_ context.Context) ([]model.Doctor, error) {
	var out []model.Doctor
	for _, d := range f.doctors {
		out = append(out, d)
	}
	return out, nil
}

func TestRegisterUserHashesPassword(t *testing.T) {
	store := newFakeDirectoryStore()
	h := NewDirectoryHandler(store, nil)

	rec := postJSON(t, h.Users, "/api/v1/users", `{
		"email": "Anika@Example.com",
		"password": "s3cret-pass",
		"role": "patient",
		"name": "Anika",
		"phone": "+8801700000000"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Email != "anika@example.com" {
		t.Fatalf("email = %s, want lowercased", resp.Email)
	}

	stored := store.users[resp.UserID]
	if stored.PasswordHash == "s3cret-pass" || stored.PasswordHash == "" {
		t.Fatalf("password stored in the clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	h := NewDirectoryHandler(newFakeDirectoryStore(), nil)

	for _, body := range []string{
		`{"email": "not-an-email", "password": "s3cret-pass", "role": "patient", "name": "A"}`,
		`{"email": "a@b.com", "password": "short", "role": "patient", "name": "A"}`,
		`{"email": "a@b.com", "password": "s3cret-pass", "role": "superuser", "name": "A"}`,
		`{"email": "a@b.com", "password": "s3cret-pass", "role": "patient", "name": ""}`,
	} {
		if rec := postJSON(t, h.Users, "/api/v1/users", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	h := NewDirectoryHandler(newFakeDirectoryStore(), nil)

	body := `{"email": "a@b.com", "password": "s3cret-pass", "role": "patient", "name": "A"}`
	if rec := postJSON(t, h.Users, "/api/v1/users", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register: status = %d", rec.Code)
	}
	if rec := postJSON(t, h.Users, "/api/v1/users", body); rec.Code != http.StatusConflict {
		t.Fatalf("second register: status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestDeleteUser(t *testing.T) {
	store := newFakeDirectoryStore()
	store.users["user-9"] = model.User{ID: "user-9", Email: "x@y.com"}
	h := NewDirectoryHandler(store, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users?id=user-9", nil)
	rec := httptest.NewRecorder()
	h.Users(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users?id=user-9", nil)
	rec = httptest.NewRecorder()
	h.Users(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateDoctorRequiresDoctorRole(t *testing.T) {
	store := newFakeDirectoryStore()
	store.users["user-1"] = model.User{ID: "user-1", Email: "p@x.com", Role: model.RolePatient, Name: "P"}
	h := NewDirectoryHandler(store, nil)

	rec := postJSON(t, h.Doctors, "/api/v1/doctors", `{"user_id": "user-1", "specialty": "Dermatology"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusConflict, rec.Body)
	}
}

func TestCreateDoctorTakesNameFromUser(t *testing.T) {
	store := newFakeDirectoryStore()
	store.users["user-1"] = model.User{ID: "user-1", Email: "d@x.com", Role: model.RoleDoctor, Name: "Dr. Rahman"}
	h := NewDirectoryHandler(store, nil)

	rec := postJSON(t, h.Doctors, "/api/v1/doctors", `{"user_id": "user-1", "specialty": "Dermatology"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp doctorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Name != "Dr. Rahman" || resp.Specialty != "Dermatology" {
		t.Fatalf("response = %+v", resp)
	}
}
