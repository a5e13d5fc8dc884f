package usecase

import (
	"context"
	"errors"
	"fmt"

	"krume-backend/internal/domain"
	"krume-backend/internal/infrastructure/metrics"
	"krume-backend/internal/pricing"
	"krume-backend/pkg/logger"

	"github.com/google/uuid"
)

// CouponValidator keeps a cart's applied coupon consistent with the cart's contents.
type CouponValidator struct {
	couponRepo domain.CouponRepository
	metrics    *metrics.Metrics
}

func NewCouponValidator(couponRepo domain.CouponRepository, m *metrics.Metrics) *CouponValidator {
	return &CouponValidator{couponRepo: couponRepo, metrics: m}
}

// Revalidate detaches the cart's coupon when the coupon no longer resolves or the cart
// subtotal, computed without any discount, is below the coupon's minimum order amount.
// It only mutates cart; persisting is the caller's job. The returned coupon is nil when
// nothing is attached after the check.
func (v *CouponValidator) Revalidate(ctx context.Context, cart *domain.Cart, lines []pricing.Line) (*domain.Coupon, bool, error) {
	if cart.AppliedCoupon == nil {
		return nil, false, nil
	}

	coupon, err := v.resolve(ctx, *cart.AppliedCoupon)
	if err != nil {
		return nil, false, err
	}
	if coupon == nil {
		v.detach(ctx, cart, "coupon no longer exists")
		return nil, true, nil
	}

	bill := pricing.CalculateBill(lines, nil)
	if float64(bill.TotalExclTax) < coupon.MinOrderAmount {
		v.detach(ctx, cart, "subtotal below minimum order amount")
		return nil, true, nil
	}
	return coupon, false, nil
}

func (v *CouponValidator) resolve(ctx context.Context, ref string) (*domain.Coupon, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, nil
	}
	coupon, err := v.couponRepo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load applied coupon: %w", err)
	}
	return coupon, nil
}

func (v *CouponValidator) detach(ctx context.Context, cart *domain.Cart, reason string) {
	logger.WithContext(ctx).Info().
		Str("user_id", cart.UserID).
		Str("coupon_id", *cart.AppliedCoupon).
		Str("reason", reason).
		Msg("Coupon removed from cart")
	cart.AppliedCoupon = nil
	v.metrics.CouponAutoRemoved()
}
