package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/clock"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/pricing"
)

type CatalogStore interface {
	CreateService(ctx context.Context, s model.CatalogService) (model.CatalogService, error)
	ListServices(ctx context.Context) ([]model.CatalogService, error)
	UpdateServiceStatus(ctx context.Context, id, status string) error
	CreatePromotion(ctx context.Context, p model.Promotion) (model.Promotion, error)
	ListPromotions(ctx context.Context, serviceID string) ([]model.Promotion, error)
	ActivePromotions(ctx context.Context, serviceID string, now time.Time) ([]model.Promotion, error)
	SoftDeletePromotion(ctx context.Context, id string) error
}

type CatalogHandler struct {
	store  CatalogStore
	logger *slog.Logger
	now    func() time.Time
}

func NewCatalogHandler(store CatalogStore, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, logger: logger, now: time.Now}
}

type createServiceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Status      string `json:"status"`
}

type serviceResponse struct {
	ServiceID    string `json:"service_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        string `json:"price"`
	AppliedPrice string `json:"applied_price"`
	PromotionID  string `json:"promotion_id,omitempty"`
	Status       string `json:"status"`
}

// Services handles POST (create) and GET (list with applied promotion
// pricing) on /api/v1/services.
func (h *CatalogHandler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createService(w, r)
	case http.MethodGet:
		h.listServices(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *CatalogHandler) createService(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Price = strings.TrimSpace(req.Price)
	if req.Name == "" || req.Price == "" {
		writeError(w, h.logger, apperr.Validation("name and price are required"))
		return
	}
	if req.Status == "" {
		req.Status = model.ServiceAvailable
	}
	if req.Status != model.ServiceAvailable && req.Status != model.ServiceUnavailable {
		writeError(w, h.logger, apperr.Validation("unrecognized status %q", req.Status))
		return
	}

	svc, err := h.store.CreateService(r.Context(), model.CatalogService{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Status:      req.Status,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, serviceResponse{
		ServiceID:    svc.ID,
		Name:         svc.Name,
		Description:  svc.Description,
		Price:        svc.Price,
		AppliedPrice: svc.Price,
		Status:       svc.Status,
	})
}

func (h *CatalogHandler) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	now := h.now()

	items := make([]serviceResponse, 0, len(services))
	for _, svc := range services {
		resp := serviceResponse{
			ServiceID:    svc.ID,
			Name:         svc.Name,
			Description:  svc.Description,
			Price:        svc.Price,
			AppliedPrice: svc.Price,
			Status:       svc.Status,
		}
		promos, err := h.store.ActivePromotions(r.Context(), svc.ID, now)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		applied, won := pricing.Apply(svc.Price, promos, now)
		resp.AppliedPrice = applied
		if won != nil {
			resp.PromotionID = won.ID
		}
		items = append(items, resp)
	}
	writeJSON(w, http.StatusOK, items)
}

type serviceStatusRequest struct {
	ServiceID string `json:"service_id"`
	Status    string `json:"status"`
}

// ServiceStatus handles POST /api/v1/services/status, toggling a service
// between AVAILABLE and UNAVAILABLE.
func (h *CatalogHandler) ServiceStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req serviceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.ServiceID == "" {
		writeError(w, h.logger, apperr.Validation("service_id is required"))
		return
	}
	if req.Status != model.ServiceAvailable && req.Status != model.ServiceUnavailable {
		writeError(w, h.logger, apperr.Validation("unrecognized status %q", req.Status))
		return
	}
	if err := h.store.UpdateServiceStatus(r.Context(), req.ServiceID, req.Status); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service_id": req.ServiceID,
		"status":     req.Status,
	})
}

type createPromotionRequest struct {
	ServiceID  string `json:"service_id"`
	Title      string `json:"title"`
	PercentOff int    `json:"percent_off"`
	StartsAt   string `json:"starts_at"`
	EndsAt     string `json:"ends_at"`
}

type promotionResponse struct {
	PromotionID string `json:"promotion_id"`
	ServiceID   string `json:"service_id"`
	Title       string `json:"title"`
	PercentOff  int    `json:"percent_off"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
}

func toPromotionResponse(p model.Promotion) promotionResponse {
	return promotionResponse{
		PromotionID: p.ID,
		ServiceID:   p.ServiceID,
		Title:       p.Title,
		PercentOff:  p.PercentOff,
		StartsAt:    clock.FormatDate(p.StartsAt),
		EndsAt:      clock.FormatDate(p.EndsAt),
	}
}

// Promotions handles POST (create), GET (list, optionally ?service_id=),
// and DELETE ?id= on /api/v1/promotions.
func (h *CatalogHandler) Promotions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createPromotion(w, r)
	case http.MethodGet:
		h.listPromotions(w, r)
	case http.MethodDelete:
		h.deletePromotion(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *CatalogHandler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req createPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperr.Validation("invalid json body"))
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Title = strings.TrimSpace(req.Title)
	if req.ServiceID == "" || req.Title == "" {
		writeError(w, h.logger, apperr.Validation("service_id and title are required"))
		return
	}
	if req.PercentOff < 1 || req.PercentOff > 100 {
		writeError(w, h.logger, apperr.Validation("percent_off must be between 1 and 100"))
		return
	}
	startsAt, err := clock.ParseDate(req.StartsAt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	endsAt, err := clock.ParseDate(req.EndsAt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !startsAt.Before(endsAt) {
		writeError(w, h.logger, apperr.Validation("starts_at must be before ends_at"))
		return
	}

	promo, err := h.store.CreatePromotion(r.Context(), model.Promotion{
		ServiceID:  req.ServiceID,
		Title:      req.Title,
		PercentOff: req.PercentOff,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromotionResponse(promo))
}

func (h *CatalogHandler) listPromotions(w http.ResponseWriter, r *http.Request) {
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	promos, err := h.store.ListPromotions(r.Context(), serviceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]promotionResponse, 0, len(promos))
	for _, p := range promos {
		items = append(items, toPromotionResponse(p))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) deletePromotion(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, h.logger, apperr.Validation("id is required"))
		return
	}
	if err := h.store.SoftDeletePromotion(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
