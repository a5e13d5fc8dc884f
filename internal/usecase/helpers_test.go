package usecase

import (
	"context"
	"time"

	"krume-backend/internal/domain"
	"krume-backend/internal/pricing"
)

var ctx = context.Background()

func priced(p *domain.Product) *domain.Product {
	p.IsActive = true
	p.ApplyPricing(pricing.ForProduct(p))
	p.SyncStock()
	return p
}

// shirt: 1200 at 10% off, unit 1080 (12% slab), 8 in stock.
func shirt() *domain.Product {
	return priced(&domain.Product{
		ID:              "shirt",
		Name:            "Linen Shirt",
		BasePrice:       1200,
		DiscountPercent: 10,
		Sizes:           []domain.SizeStock{{Size: "M", Stock: 5}, {Size: "L", Stock: 3}},
		Images:          []string{"https://cdn.krume.test/shirt.jpg"},
	})
}

// tee: 400 with no discount (5% slab), 10 in stock.
func tee() *domain.Product {
	return priced(&domain.Product{
		ID:        "tee",
		Name:      "Cotton Tee",
		BasePrice: 400,
		Sizes:     []domain.SizeStock{{Size: "S", Stock: 10}},
	})
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
