package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

type Coupon struct {
	ID             uuid.UUID  `json:"id"`
	Code           string     `json:"code"`
	DiscountType   string     `json:"discountType"` // percentage, fixed
	DiscountAmount float64    `json:"discountAmount"`
	MinOrderAmount float64    `json:"minOrderAmount"`
	UsageLimit     int        `json:"usageLimit"`
	UsedCount      int        `json:"usedCount"`
	UsersUsed      []string   `json:"usersUsed"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// UsedBy reports whether userID already redeemed the coupon.
func (c *Coupon) UsedBy(userID string) bool {
	for _, u := range c.UsersUsed {
		if u == userID {
			return true
		}
	}
	return false
}

// IsExpired reports whether the coupon expired at t.
func (c *Coupon) IsExpired(t time.Time) bool {
	return c.ExpiresAt != nil && t.After(*c.ExpiresAt)
}

type CouponRepository interface {
	Create(ctx context.Context, coupon *Coupon) error
	// GetByCode and GetByID return ErrNotFound when absent.
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	List(ctx context.Context, limit, offset int) ([]Coupon, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, coupon *Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	// RecordUsage atomically increments usedCount and appends userID.
	RecordUsage(ctx context.Context, id uuid.UUID, userID string) error
}
