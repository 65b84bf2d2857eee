// Package pricing applies promotions to catalog service prices.
package pricing

import (
	"strconv"
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

// Apply returns the price after the best live promotion, formatted with two
// decimals, plus the promotion that won (nil when none applies). When
// several promotions are live the largest percent wins; ties break on id so
// the result is stable.
func Apply(price string, promos []model.Promotion, now time.Time) (string, *model.Promotion) {
	base, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return price, nil
	}

	var best *model.Promotion
	for i := range promos {
		p := &promos[i]
		if p.PercentOff <= 0 || p.PercentOff > 100 {
			continue
		}
		if now.Before(p.StartsAt) || !now.Before(p.EndsAt) {
			continue
		}
		if best == nil || p.PercentOff > best.PercentOff ||
			(p.PercentOff == best.PercentOff && p.ID < best.ID) {
			best = p
		}
	}
	if best == nil {
		return strconv.FormatFloat(base, 'f', 2, 64), nil
	}

	discounted := base * float64(100-best.PercentOff) / 100
	return strconv.FormatFloat(discounted, 'f', 2, 64), best
}
