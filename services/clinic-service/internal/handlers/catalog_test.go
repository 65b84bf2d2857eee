package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

type fakeCatalogStore struct {
	services []model.CatalogService
	promos   []model.Promotion
}

func (f *fakeCatalogStore) CreateService(_ context.Context, s model.CatalogService) (model.CatalogService, error) {
	s.ID = "svc-new"
	f.services = append(f.services, s)
	return s, nil
}

func (f *fakeCatalogStore) ListServices(_ context.Context) ([]model.CatalogService, error) {
	return f.services, nil
}

func (f *fakeCatalogStore) UpdateServiceStatus(_ context.Context, id, status string) error {
	for i := range f.services {
		if f.services[i].ID == id {
			f.services[i].Status = status
			return nil
		}
	}
	return apperr.NotFound("service %s not found", id)
}

func (f *fakeCatalogStore) CreatePromotion(_ context.Context, p model.Promotion) (model.Promotion, error) {
	p.ID = "promo-new"
	f.promos = append(f.promos, p)
	return p, nil
}

func (f *fakeCatalogStore) ListPromotions(_ context.Context, serviceID string) ([]model.Promotion, error) {
	var out []model.Promotion
	for _, p := range f.promos {
		if serviceID == "" || p.ServiceID == serviceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalogStore) ActivePromotions(_ context.Context, serviceID string, now time.Time) ([]model.Promotion, error) {
	var out []model.Promotion
	for _, p := range f.promos {
		if p.ServiceID == serviceID && !now.Before(p.StartsAt) && now.Before(p.EndsAt) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalogStore) SoftDeletePromotion(_ context.Context, id string) error {
	for i, p := range f.promos {
		if p.ID == id {
			f.promos = append(f.promos[:i], f.promos[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("promotion %s not found", id)
}

func TestListServicesAppliesBestLivePromotion(t *testing.T) {
	now := time.Date(2026, 9, 12, 12, 0, 0, 0, time.UTC)
	store := &fakeCatalogStore{
		services: []model.CatalogService{
			{ID: "svc-1", Name: "Consultation", Price: "500.00", Status: model.ServiceAvailable},
		},
		promos: []model.Promotion{
			{ID: "promo-small", ServiceID: "svc-1", PercentOff: 10,
				StartsAt: now.AddDate(0, 0, -1), EndsAt: now.AddDate(0, 0, 1)},
			{ID: "promo-big", ServiceID: "svc-1", PercentOff: 25,
				StartsAt: now.AddDate(0, 0, -1), EndsAt: now.AddDate(0, 0, 1)},
			{ID: "promo-expired", ServiceID: "svc-1", PercentOff: 90,
				StartsAt: now.AddDate(0, 0, -7), EndsAt: now.AddDate(0, 0, -2)},
		},
	}
	h := NewCatalogHandler(store, nil)
	h.now = func() time.Time { return now }

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
	rec := httptest.NewRecorder()
	h.Services(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var items []serviceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].Price != "500.00" {
		t.Fatalf("price = %s, want 500.00", items[0].Price)
	}
	if items[0].AppliedPrice != "375.00" {
		t.Fatalf("applied price = %s, want 375.00", items[0].AppliedPrice)
	}
	if items[0].PromotionID != "promo-big" {
		t.Fatalf("promotion = %s, want promo-big", items[0].PromotionID)
	}
}

func TestListServicesWithoutPromotionKeepsPrice(t *testing.T) {
	store := &fakeCatalogStore{
		services: []model.CatalogService{
			{ID: "svc-1", Name: "Consultation", Price: "500.00", Status: model.ServiceAvailable},
		},
	}
	h := NewCatalogHandler(store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
	rec := httptest.NewRecorder()
	h.Services(rec, req)

	var items []serviceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if items[0].AppliedPrice != "500.00" || items[0].PromotionID != "" {
		t.Fatalf("response = %+v", items[0])
	}
}

func TestCreateServiceValidation(t *testing.T) {
	h := NewCatalogHandler(&fakeCatalogStore{}, nil)

	rec := postJSON(t, h.Services, "/api/v1/services", `{"name": "", "price": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = postJSON(t, h.Services, "/api/v1/services", `{"name": "X-Ray", "price": "1200", "status": "SOMETIMES"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServiceStatusToggle(t *testing.T) {
	store := &fakeCatalogStore{
		services: []model.CatalogService{
			{ID: "svc-1", Name: "Consultation", Price: "500.00", Status: model.ServiceAvailable},
		},
	}
	h := NewCatalogHandler(store, nil)

	rec := postJSON(t, h.ServiceStatus, "/api/v1/services/status",
		`{"service_id": "svc-1", "status": "UNAVAILABLE"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if store.services[0].Status != model.ServiceUnavailable {
		t.Fatalf("service status = %s, want %s", store.services[0].Status, model.ServiceUnavailable)
	}
}

func TestCreatePromotionValidatesWindow(t *testing.T) {
	h := NewCatalogHandler(&fakeCatalogStore{}, nil)

	rec := postJSON(t, h.Promotions, "/api/v1/promotions", `{
		"service_id": "svc-1", "title": "Eid offer", "percent_off": 20,
		"starts_at": "2026-10-01", "ends_at": "2026-09-01"
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body)
	}

	rec = postJSON(t, h.Promotions, "/api/v1/promotions", `{
		"service_id": "svc-1", "title": "Eid offer", "percent_off": 120,
		"starts_at": "2026-09-01", "ends_at": "2026-10-01"
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body)
	}
}
