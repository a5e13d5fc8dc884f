package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_DiscountedHighSlab(t *testing.T) {
	r := Compute(1200, 10)

	assert.Equal(t, int64(1200), r.OriginalPrice)
	assert.Equal(t, int64(1080), r.DiscountPrice)
	assert.Equal(t, int64(120), r.DiscountAmount)
	assert.Equal(t, 12, r.GSTRate)
	assert.Equal(t, int64(130), r.GSTAmount)
	assert.Equal(t, int64(1210), r.FinalPriceWithTax)
}

func TestCompute_BreakPointIsInclusive(t *testing.T) {
	r := Compute(1000, 0)
	assert.Equal(t, GSTRateLow, r.GSTRate)
	assert.Equal(t, int64(50), r.GSTAmount)
	assert.Equal(t, int64(1050), r.FinalPriceWithTax)

	r = Compute(1001, 0)
	assert.Equal(t, GSTRateHigh, r.GSTRate)
	assert.Equal(t, int64(120), r.GSTAmount)
}

func TestCompute_RoundsHalfAwayFromZero(t *testing.T) {
	r := Compute(999, 50)
	assert.Equal(t, int64(500), r.DiscountPrice)
	assert.Equal(t, int64(499), r.DiscountAmount)
	assert.Equal(t, int64(25), r.GSTAmount)
}

func TestCompute_InvalidInputCoercedToZero(t *testing.T) {
	r := Compute(math.NaN(), math.Inf(1))
	assert.Equal(t, int64(0), r.DiscountPrice)
	assert.Equal(t, int64(0), r.FinalPriceWithTax)

	assert.Equal(t, 0.0, ParseAmount("abc"))
	assert.Equal(t, 0.0, ParseAmount(""))
	assert.Equal(t, 1499.0, ParseAmount(" 1499 "))
}

func TestCompute_Properties(t *testing.T) {
	for price := 0.0; price <= 5000; price += 37 {
		for discount := 0.0; discount <= 100; discount += 5 {
			r := Compute(price, discount)

			assert.LessOrEqual(t, r.DiscountPrice, r.OriginalPrice, "price=%v discount=%v", price, discount)
			if r.DiscountPrice <= GSTBreakPoint {
				assert.Equal(t, GSTRateLow, r.GSTRate)
			} else {
				assert.Equal(t, GSTRateHigh, r.GSTRate)
			}
			assert.Equal(t, r.DiscountPrice+r.GSTAmount, r.FinalPriceWithTax)
		}
	}
}
