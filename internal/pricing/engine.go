// Package pricing holds the price arithmetic shared by the catalog, the cart and checkout.
// Catalog display, cart preview and order totals must agree to the unit, so every monetary
// rounding in the service goes through Round.
package pricing

import (
	"math"
	"strconv"
	"strings"

	"krume-backend/internal/domain"
)

const (
	// GSTBreakPoint separates the 5% and 12% GST slabs.
	GSTBreakPoint = 1000
	GSTRateLow    = 5
	GSTRateHigh   = 12
)

// Round rounds half away from zero to the integer currency unit.
func Round(v float64) int64 {
	return int64(math.Round(v))
}

// Compute derives discount and GST for a catalog price. Invalid numbers count as 0.
// The slab test here is inclusive (discountPrice <= 1000 pays 5%).
func Compute(price, discountPercent float64) domain.PricingResult {
	price = sanitize(price)
	discountPercent = sanitize(discountPercent)

	discountPrice := Round(price - price*discountPercent/100)
	rate := GSTRateHigh
	if discountPrice <= GSTBreakPoint {
		rate = GSTRateLow
	}
	gstAmount := Round(float64(discountPrice) * float64(rate) / 100)
	original := Round(price)

	return domain.PricingResult{
		OriginalPrice:     original,
		DiscountPercent:   discountPercent,
		DiscountPrice:     discountPrice,
		DiscountAmount:    original - discountPrice,
		GSTRate:           rate,
		GSTAmount:         gstAmount,
		FinalPriceWithTax: discountPrice + gstAmount,
	}
}

// ForProduct runs Compute on a product's base data.
func ForProduct(p *domain.Product) domain.PricingResult {
	return Compute(float64(p.BasePrice), p.DiscountPercent)
}

// ParseAmount parses a loosely typed numeric field, returning 0 for anything non-numeric.
func ParseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return sanitize(v)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
