package pricing

import "krume-backend/internal/domain"

const (
	FreeShippingThreshold = 1000
	FlatShippingCharge    = 50
)

// Line is a cart item with its resolved product. Product is nil when the product was
// deleted after the item was added.
type Line struct {
	Product  *domain.Product
	Quantity int
}

// UnitPrice is the discounted price when one is set, the base price otherwise.
func UnitPrice(p *domain.Product) int64 {
	if p.DiscountPrice > 0 {
		return p.DiscountPrice
	}
	return p.BasePrice
}

// ItemGSTRate returns the per-item GST rate as a fraction. Unlike Compute, the slab test
// is strict: a unit price of exactly 1000 pays 12%.
func ItemGSTRate(unit int64) float64 {
	if unit < GSTBreakPoint {
		return float64(GSTRateLow) / 100
	}
	return float64(GSTRateHigh) / 100
}

// DisplayLine returns the tax-inclusive unit price and line total shown to the customer.
func DisplayLine(unit int64, quantity int) (unitWithTax, lineTotal int64) {
	unitWithTax = unit + Round(float64(unit)*ItemGSTRate(unit))
	return unitWithTax, unitWithTax * int64(quantity)
}

// CalculateBill aggregates the lines and an optional coupon into a bill. A discount larger
// than the subtotal is not clamped and yields a negative taxable amount.
func CalculateBill(lines []Line, coupon *domain.Coupon) domain.BillSummary {
	var (
		totalExclTax float64
		totalGST     float64
		totalItems   int
	)
	for _, l := range lines {
		if l.Product == nil {
			continue
		}
		unit := UnitPrice(l.Product)
		lineTotal := float64(unit) * float64(l.Quantity)
		totalExclTax += lineTotal
		totalGST += lineTotal * ItemGSTRate(unit)
		totalItems += l.Quantity
	}

	var discount float64
	code := ""
	if coupon != nil {
		code = coupon.Code
		switch coupon.DiscountType {
		case domain.CouponTypePercentage:
			discount = float64(Round(totalExclTax * coupon.DiscountAmount / 100))
		case domain.CouponTypeFixed:
			discount = coupon.DiscountAmount
		}
	}

	taxable := totalExclTax - discount
	effectiveRate := 0.0
	if totalExclTax > 0 {
		effectiveRate = totalGST / totalExclTax
	}
	finalGST := taxable * effectiveRate

	var shipping int64
	if totalItems > 0 && totalExclTax < FreeShippingThreshold {
		shipping = FlatShippingCharge
	}

	taxableRounded := Round(taxable)
	gstRounded := Round(finalGST)

	return domain.BillSummary{
		TotalItems:     totalItems,
		TotalExclTax:   Round(totalExclTax),
		DiscountAmount: Round(discount),
		TaxableAmount:  taxableRounded,
		GSTAmount:      gstRounded,
		ShippingCharge: shipping,
		FinalTotal:     taxableRounded + gstRounded + shipping,
		CouponCode:     code,
	}
}
