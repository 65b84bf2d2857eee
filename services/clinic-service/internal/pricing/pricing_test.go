package pricing

import (
	"testing"
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

var now = time.Date(2026, 9, 12, 12, 0, 0, 0, time.UTC)

func promo(id string, percent int, start, end time.Time) model.Promotion {
	return model.Promotion{ID: id, PercentOff: percent, StartsAt: start, EndsAt: end}
}

func TestApply_NoPromotions(t *testing.T) {
	price, won := Apply("120.50", nil, now)
	if price != "120.50" || won != nil {
		t.Fatalf("expected unchanged price, got %s (%v)", price, won)
	}
}

func TestApply_LivePromotion(t *testing.T) {
	promos := []model.Promotion{
		promo("a", 20, now.Add(-time.Hour), now.Add(time.Hour)),
	}
	price, won := Apply("100.00", promos, now)
	if price != "80.00" {
		t.Fatalf("expected 80.00, got %s", price)
	}
	if won == nil || won.ID != "a" {
		t.Fatalf("expected promotion a, got %+v", won)
	}
}

func TestApply_LargestPercentWins(t *testing.T) {
	promos := []model.Promotion{
		promo("a", 10, now.Add(-time.Hour), now.Add(time.Hour)),
		promo("b", 25, now.Add(-time.Hour), now.Add(time.Hour)),
	}
	price, won := Apply("200.00", promos, now)
	if price != "150.00" {
		t.Fatalf("expected 150.00, got %s", price)
	}
	if won == nil || won.ID != "b" {
		t.Fatalf("expected promotion b, got %+v", won)
	}
}

func TestApply_WindowIsHalfOpen(t *testing.T) {
	// A promotion ending exactly now is no longer live.
	promos := []model.Promotion{
		promo("expired", 50, now.Add(-time.Hour), now),
		promo("future", 50, now.Add(time.Hour), now.Add(2*time.Hour)),
	}
	price, won := Apply("100.00", promos, now)
	if price != "100.00" || won != nil {
		t.Fatalf("expected no live promotion, got %s (%v)", price, won)
	}

	// One starting exactly now is live.
	startsNow := []model.Promotion{promo("live", 10, now, now.Add(time.Hour))}
	price, won = Apply("100.00", startsNow, now)
	if price != "90.00" || won == nil {
		t.Fatalf("expected live promotion at window start, got %s (%v)", price, won)
	}
}

func TestApply_BadPricePassesThrough(t *testing.T) {
	price, won := Apply("free", nil, now)
	if price != "free" || won != nil {
		t.Fatalf("expected pass-through, got %s (%v)", price, won)
	}
}
