package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"krume-backend/internal/domain"
)

func product(base int64, discountPercent float64) *domain.Product {
	p := &domain.Product{ID: "p", BasePrice: base, DiscountPercent: discountPercent}
	p.ApplyPricing(Compute(float64(base), discountPercent))
	return p
}

func TestCalculateBill_Empty(t *testing.T) {
	bill := CalculateBill(nil, nil)

	assert.Equal(t, domain.BillSummary{}, bill)
}

func TestCalculateBill_ShippingThreshold(t *testing.T) {
	bill := CalculateBill([]Line{{Product: product(1000, 0), Quantity: 1}}, nil)
	assert.Equal(t, int64(1000), bill.TotalExclTax)
	assert.Equal(t, int64(0), bill.ShippingCharge)
	// strict slab: a unit of exactly 1000 pays 12%
	assert.Equal(t, int64(120), bill.GSTAmount)
	assert.Equal(t, int64(1120), bill.FinalTotal)

	bill = CalculateBill([]Line{{Product: product(999, 0), Quantity: 1}}, nil)
	assert.Equal(t, int64(999), bill.TotalExclTax)
	assert.Equal(t, int64(FlatShippingCharge), bill.ShippingCharge)
	assert.Equal(t, int64(50), bill.GSTAmount)
	assert.Equal(t, int64(1099), bill.FinalTotal)
}

func TestCalculateBill_DiscountedProductTwoUnits(t *testing.T) {
	bill := CalculateBill([]Line{{Product: product(1200, 10), Quantity: 2}}, nil)

	assert.Equal(t, 2, bill.TotalItems)
	assert.Equal(t, int64(2160), bill.TotalExclTax)
	assert.Equal(t, int64(259), bill.GSTAmount)
	assert.Equal(t, int64(0), bill.ShippingCharge)
	assert.Equal(t, int64(2419), bill.FinalTotal)
}

func TestCalculateBill_SkipsMissingProducts(t *testing.T) {
	bill := CalculateBill([]Line{
		{Product: nil, Quantity: 3},
		{Product: product(999, 0), Quantity: 1},
	}, nil)

	assert.Equal(t, 1, bill.TotalItems)
	assert.Equal(t, int64(999), bill.TotalExclTax)
}

func TestCalculateBill_PercentageCoupon(t *testing.T) {
	coupon := &domain.Coupon{Code: "TEN", DiscountType: domain.CouponTypePercentage, DiscountAmount: 10}

	bill := CalculateBill([]Line{{Product: product(1200, 10), Quantity: 2}}, coupon)

	assert.Equal(t, "TEN", bill.CouponCode)
	assert.Equal(t, int64(216), bill.DiscountAmount)
	assert.Equal(t, int64(1944), bill.TaxableAmount)
	assert.Equal(t, int64(233), bill.GSTAmount)
	assert.Equal(t, int64(2177), bill.FinalTotal)
}

func TestCalculateBill_MixedSlabsUseEffectiveRate(t *testing.T) {
	coupon := &domain.Coupon{Code: "FLAT100", DiscountType: domain.CouponTypeFixed, DiscountAmount: 100}

	bill := CalculateBill([]Line{
		{Product: product(500, 0), Quantity: 2},
		{Product: product(1500, 0), Quantity: 1},
	}, coupon)

	assert.Equal(t, int64(2500), bill.TotalExclTax)
	assert.Equal(t, int64(2400), bill.TaxableAmount)
	assert.Equal(t, int64(221), bill.GSTAmount)
	assert.Equal(t, int64(2621), bill.FinalTotal)
}

func TestCalculateBill_DiscountAboveSubtotalIsNotClamped(t *testing.T) {
	coupon := &domain.Coupon{DiscountType: domain.CouponTypeFixed, DiscountAmount: 600}

	bill := CalculateBill([]Line{{Product: product(500, 0), Quantity: 1}}, coupon)

	assert.Equal(t, int64(-100), bill.TaxableAmount)
	assert.Equal(t, int64(-5), bill.GSTAmount)
	assert.Equal(t, int64(50), bill.ShippingCharge)
	assert.Equal(t, int64(-55), bill.FinalTotal)
}

func TestCalculateBill_ComponentsRoundedBeforeSum(t *testing.T) {
	coupon := &domain.Coupon{DiscountType: domain.CouponTypeFixed, DiscountAmount: 0.5}

	bill := CalculateBill([]Line{{Product: product(2000, 0), Quantity: 1}}, coupon)

	// 1999.5 -> 2000 and 239.94 -> 240; rounding the raw sum would give 2239.
	assert.Equal(t, int64(2000), bill.TaxableAmount)
	assert.Equal(t, int64(240), bill.GSTAmount)
	assert.Equal(t, int64(2240), bill.FinalTotal)
}

func TestDisplayLine(t *testing.T) {
	unit, total := DisplayLine(1080, 2)
	assert.Equal(t, int64(1210), unit)
	assert.Equal(t, int64(2420), total)

	unit, total = DisplayLine(999, 1)
	assert.Equal(t, int64(1049), unit)
	assert.Equal(t, int64(1049), total)
}
