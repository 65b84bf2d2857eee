package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

type DirectoryStore interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	SoftDeleteUser(ctx context.Context, id string) error
	CreateDoctor(ctx context.Context, d model.Doctor) (model.Doctor, error)
	GetDoctor(ctx context.Context, id string) (model.Doctor, error)
	ListDoctors(ctx context.Context) ([]model.Doctor, error)
}

type DirectoryHandler struct {
	store  DirectoryStore
	logger *slog.Logger
}

func NewDirectoryHandler(store DirectoryStore, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{store: store, logger: logger}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type userResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		Name:      u.Name,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Users handles POST (register), GET ?id=, and DELETE ?id= on /api/v1/users.
func (h *DirectoryHandler) Users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createUser(w, r)
	case http.MethodGet:
		h.getUser(w, r)
	case http.MethodDelete:
		h.deleteUser(w, r)
	default:
		methodNotAllowed(w)
	}
}

func validRole(role string) bool {
	return role == model.RolePatient || role == model.RoleDoctor || role == model.RoleAdmin
}

func (h *DirectoryHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.TrimSpace(req.Role)
	req.Name = strings.TrimSpace(req.Name)

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, h.logger, apperr.Validation("a valid email is required"))
		return
	}
	if len(req.Password) < 8 {
		writeError(w, h.logger, apperr.Validation("password must be at least 8 characters"))
		return
	}
	if !validRole(req.Role) {
		writeError(w, h.logger, apperr.Validation("unrecognized role %q", req.Role))
		return
	}
	if req.Name == "" {
		writeError(w, h.logger, apperr.Validation("name is required"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err))
		return
	}

	user, err := h.store.CreateUser(r.Context(), model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Name:         req.Name,
		Phone:        strings.TrimSpace(req.Phone),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *DirectoryHandler) getUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, h.logger, apperr.Validation("id is required"))
		return
	}
	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *DirectoryHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, h.logger, apperr.Validation("id is required"))
		return
	}
	if err := h.store.SoftDeleteUser(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createDoctorRequest struct {
	UserID    string `json:"user_id"`
	Specialty string `json:"specialty"`
	Bio       string `json:"bio"`
}

type doctorResponse struct {
	DoctorID  string `json:"doctor_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Bio       string `json:"bio,omitempty"`
}

func toDoctorResponse(d model.Doctor) doctorResponse {
	return doctorResponse{
		DoctorID:  d.ID,
		UserID:    d.UserID,
		Name:      d.Name,
		Specialty: d.Specialty,
		Bio:       d.Bio,
	}
}

// Doctors handles POST (create profile) and GET (list, or ?id= for one) on
// /api/v1/doctors.
func (h *DirectoryHandler) Doctors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createDoctor(w, r)
	case http.MethodGet:
		h.getDoctors(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *DirectoryHandler) createDoctor(w http.ResponseWriter, r *http.Request) {
	var req createDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Specialty = strings.TrimSpace(req.Specialty)
	if req.UserID == "" || req.Specialty == "" {
		writeError(w, h.logger, apperr.Validation("user_id and specialty are required"))
		return
	}

	doctor, err := h.store.CreateDoctor(r.Context(), model.Doctor{
		UserID:    req.UserID,
		Specialty: req.Specialty,
		Bio:       strings.TrimSpace(req.Bio),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDoctorResponse(doctor))
}

func (h *DirectoryHandler) getDoctors(w http.ResponseWriter, r *http.Request) {
	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		doctor, err := h.store.GetDoctor(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(doctor))
		return
	}

	doctors, err := h.store.ListDoctors(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]doctorResponse, 0, len(doctors))
	for _, d := range doctors {
		items = append(items, toDoctorResponse(d))
	}
	writeJSON(w, http.StatusOK, items)
}
