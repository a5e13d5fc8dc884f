package domain

import (
	"context"
	"time"
)

// --- Cart Entities ---

// Cart is owned by exactly one user and created lazily on the first add.
type Cart struct {
	UserID        string     `json:"userId"`
	Items         []CartItem `json:"items"`
	AppliedCoupon *string    `json:"appliedCoupon"` // coupon id
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CartItem is identified by the (product, size, color) triple; duplicates merge.
type CartItem struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// Matches reports whether the item is the same (product, size, color) line.
func (i CartItem) Matches(productID, size, color string) bool {
	return i.ProductID == productID && i.Size == size && i.Color == color
}

// BillSummary is the output of the bill calculator. Each component is rounded to an
// integer on its own and Total is their sum.
type BillSummary struct {
	TotalItems     int    `json:"totalItems"`
	TotalExclTax   int64  `json:"totalExclTax"`
	DiscountAmount int64  `json:"discountAmount"`
	TaxableAmount  int64  `json:"taxableAmount"`
	GSTAmount      int64  `json:"gstAmount"`
	ShippingCharge int64  `json:"shippingCharge"`
	FinalTotal     int64  `json:"finalTotal"`
	CouponCode     string `json:"couponCode,omitempty"`
}

// CartLine is the display form of a cart item with its resolved product.
type CartLine struct {
	ItemID           string `json:"_id"`
	ProductID        string `json:"productId"`
	Name             string `json:"name"`
	Image            string `json:"image"`
	Size             string `json:"size"`
	Color            string `json:"color"`
	Quantity         int    `json:"quantity"`
	CountInStock     int    `json:"countInStock"`
	UnitPrice        int64  `json:"unitPrice"`
	UnitPriceWithTax int64  `json:"unitPriceWithTax"`
	LineTotal        int64  `json:"lineTotal"`
}

// CartView is what every cart operation returns.
type CartView struct {
	Items         []CartLine  `json:"items"`
	Bill          BillSummary `json:"bill"`
	AppliedCoupon *Coupon     `json:"appliedCoupon"`
	CouponRemoved bool        `json:"couponRemoved"`
}

// Cart item update actions
const (
	CartActionIncrement  = "inc"
	CartActionDecrement  = "dec"
	CartActionUpdateSize = "updateSize"
)

type CartRepository interface {
	// GetByUserID returns ErrNotFound when the user has no cart.
	GetByUserID(ctx context.Context, userID string) (*Cart, error)
	// Save replaces the whole cart document.
	Save(ctx context.Context, cart *Cart) error
	// Delete is idempotent.
	Delete(ctx context.Context, userID string) error
}
