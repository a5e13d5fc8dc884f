package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"krume-backend/internal/domain"

	"github.com/google/uuid"
)

// CouponUsecase handles admin coupon management operations.
type CouponUsecase struct {
	couponRepo domain.CouponRepository
}

// NewCouponUsecase creates a new CouponUsecase instance.
func NewCouponUsecase(couponRepo domain.CouponRepository) *CouponUsecase {
	return &CouponUsecase{
		couponRepo: couponRepo,
	}
}

// CouponRequest is the input for creating or updating a coupon.
type CouponRequest struct {
	Code           string  `json:"code"`
	DiscountType   string  `json:"discountType"` // "percentage" or "fixed"
	DiscountAmount float64 `json:"discountAmount"`
	MinOrderAmount float64 `json:"minOrderAmount"`
	UsageLimit     int     `json:"usageLimit"`
	ExpiresAt      string  `json:"expiresAt"` // ISO8601 format
	IsActive       bool    `json:"isActive"`
}

func (req CouponRequest) validate() (string, *time.Time, error) {
	// Codes are stored and matched uppercase
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return "", nil, domain.NewValidationError("coupon code is required")
	}

	if req.DiscountType != domain.CouponTypePercentage && req.DiscountType != domain.CouponTypeFixed {
		return "", nil, domain.NewValidationError("discount type must be 'percentage' or 'fixed'")
	}

	if req.DiscountAmount <= 0 {
		return "", nil, domain.NewValidationError("discount amount must be greater than 0")
	}

	if req.DiscountType == domain.CouponTypePercentage && req.DiscountAmount > 100 {
		return "", nil, domain.NewValidationError("percentage discount cannot exceed 100%%")
	}

	if req.MinOrderAmount < 0 {
		return "", nil, domain.NewValidationError("minimum order amount cannot be negative")
	}

	if req.UsageLimit < 0 {
		return "", nil, domain.NewValidationError("usage limit cannot be negative")
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := parseISO8601(req.ExpiresAt)
		if err != nil {
			return "", nil, domain.NewValidationError("invalid expiresAt: %v", err)
		}
		expiresAt = &t
	}
	return code, expiresAt, nil
}

// CreateCoupon creates a new coupon with validation.
func (uc *CouponUsecase) CreateCoupon(ctx context.Context, req CouponRequest) (*domain.Coupon, error) {
	code, expiresAt, err := req.validate()
	if err != nil {
		return nil, err
	}

	// Check for duplicate code
	if err := uc.ensureCodeFree(ctx, code); err != nil {
		return nil, err
	}

	coupon := &domain.Coupon{
		ID:             uuid.New(),
		Code:           code,
		DiscountType:   req.DiscountType,
		DiscountAmount: req.DiscountAmount,
		MinOrderAmount: req.MinOrderAmount,
		UsageLimit:     req.UsageLimit,
		ExpiresAt:      expiresAt,
		IsActive:       req.IsActive,
	}

	if err := uc.couponRepo.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	return coupon, nil
}

// ListCoupons returns paginated list of coupons.
func (uc *CouponUsecase) ListCoupons(ctx context.Context, limit, offset int) ([]domain.Coupon, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	coupons, err := uc.couponRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list coupons: %w", err)
	}

	total, err := uc.couponRepo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count coupons: %w", err)
	}

	return coupons, total, nil
}

// GetCoupon returns a single coupon by ID.
func (uc *CouponUsecase) GetCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.NewValidationError("invalid coupon ID")
	}

	coupon, err := uc.couponRepo.GetByID(ctx, uid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError("coupon not found")
	}
	if err != nil {
		return nil, err
	}

	return coupon, nil
}

// UpdateCoupon updates an existing coupon. Usage counters are never touched here.
func (uc *CouponUsecase) UpdateCoupon(ctx context.Context, id string, req CouponRequest) (*domain.Coupon, error) {
	existing, err := uc.GetCoupon(ctx, id)
	if err != nil {
		return nil, err
	}

	code, expiresAt, err := req.validate()
	if err != nil {
		return nil, err
	}

	// Check for duplicate code (if changed)
	if code != existing.Code {
		if err := uc.ensureCodeFree(ctx, code); err != nil {
			return nil, err
		}
	}

	existing.Code = code
	existing.DiscountType = req.DiscountType
	existing.DiscountAmount = req.DiscountAmount
	existing.MinOrderAmount = req.MinOrderAmount
	existing.UsageLimit = req.UsageLimit
	existing.ExpiresAt = expiresAt
	existing.IsActive = req.IsActive

	if err := uc.couponRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return existing, nil
}

// DeleteCoupon deletes a coupon by ID. Carts still pointing at it drop it on their next read.
func (uc *CouponUsecase) DeleteCoupon(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.NewValidationError("invalid coupon ID")
	}

	err = uc.couponRepo.Delete(ctx, uid)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewNotFoundError("coupon not found")
	}
	return err
}

func (uc *CouponUsecase) ensureCodeFree(ctx context.Context, code string) error {
	_, err := uc.couponRepo.GetByCode(ctx, code)
	if err == nil {
		return domain.NewValidationError("coupon code '%s' already exists", code)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check coupon code: %w", err)
	}
	return nil
}

// parseISO8601 parses an ISO8601 date string.
func parseISO8601(s string) (time.Time, error) {
	// Try multiple formats
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format")
}
