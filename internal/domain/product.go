package domain

import (
	"context"
	"time"
)

// SizeStock is the per-size stock counter. It is the single source of truth for inventory;
// Product.CountInStock and Product.InStock are always derived from it.
type SizeStock struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// PricingResult is the output of the pricing engine. It is computed on the fly for catalog
// reads and persisted as denormalized product fields on create/update.
type PricingResult struct {
	OriginalPrice     int64   `json:"originalPrice"`
	DiscountPercent   float64 `json:"discountPercent"`
	DiscountPrice     int64   `json:"discountPrice"`
	DiscountAmount    int64   `json:"discountAmount"`
	GSTRate           int     `json:"gstRate"`
	GSTAmount         int64   `json:"gstAmount"`
	FinalPriceWithTax int64   `json:"finalPriceWithTax"`
}

type Product struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	BasePrice       int64       `json:"price"`
	DiscountPercent float64     `json:"discountPercent"`
	Sizes           []SizeStock `json:"sizes"`
	Colors          []string    `json:"colors"`
	Images          []string    `json:"images"`
	IsActive        bool        `json:"isActive"`

	// Denormalized pricing, written on create/update for catalog queries.
	DiscountPrice     int64 `json:"discountPrice"`
	DiscountAmount    int64 `json:"discountAmount"`
	GSTRate           int   `json:"gstRate"`
	GSTAmount         int64 `json:"gstAmount"`
	FinalPriceWithTax int64 `json:"finalPriceWithTax"`

	// Derived from Sizes, never persisted.
	CountInStock int  `json:"countInStock"`
	InStock      bool `json:"inStock"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SyncStock recomputes the aggregate stock fields from the per-size counters.
func (p *Product) SyncStock() {
	total := 0
	for _, s := range p.Sizes {
		total += s.Stock
	}
	p.CountInStock = total
	p.InStock = total > 0
}

// ApplyPricing copies a pricing result onto the denormalized product fields.
func (p *Product) ApplyPricing(r PricingResult) {
	p.DiscountPrice = r.DiscountPrice
	p.DiscountAmount = r.DiscountAmount
	p.GSTRate = r.GSTRate
	p.GSTAmount = r.GSTAmount
	p.FinalPriceWithTax = r.FinalPriceWithTax
}

type ProductFilter struct {
	Category string
	Query    string
	IsActive *bool // nil = all
	Limit    int
	Offset   int
}

// InventoryLog records a single stock movement.
type InventoryLog struct {
	ID           int64     `json:"id"`
	ProductID    string    `json:"productId"`
	Size         string    `json:"size"`
	ChangeAmount int       `json:"changeAmount"` // +2 or -1
	Reason       string    `json:"reason"`       // order_placed, order_cancelled, return_refunded
	ReferenceID  string    `json:"referenceId"`  // order id
	CreatedAt    time.Time `json:"createdAt"`
}

// Inventory movement reasons
const (
	StockReasonOrderPlaced    = "order_placed"
	StockReasonOrderCancelled = "order_cancelled"
	StockReasonReturnRefunded = "return_refunded"
)

// --- Interfaces ---

type ProductRepository interface {
	// GetByID returns ErrNotFound when the product does not exist.
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByIDs returns the products that still exist, keyed by id.
	GetByIDs(ctx context.Context, ids []string) (map[string]*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error

	// AdjustSizeStock atomically adds delta to the size counter and returns the size that was
	// touched. A blank or unknown size falls back to the product's first size.
	AdjustSizeStock(ctx context.Context, productID, size string, delta int) (string, error)
	CreateInventoryLog(ctx context.Context, log *InventoryLog) error
}
