package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"krume-backend/internal/domain"
	"krume-backend/internal/pricing"
	"krume-backend/pkg/logger"

	"github.com/google/uuid"
)

// CartUsecase owns the per-user cart document. Every operation is a single read-modify-write
// of that document; concurrent writes from the same user may lose an update.
type CartUsecase struct {
	cartRepo    domain.CartRepository
	productRepo domain.ProductRepository
	couponRepo  domain.CouponRepository
	validator   *CouponValidator
	maxQuantity int
	now         func() time.Time
}

func NewCartUsecase(cartRepo domain.CartRepository, productRepo domain.ProductRepository, couponRepo domain.CouponRepository, validator *CouponValidator, maxQuantity int) *CartUsecase {
	return &CartUsecase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		couponRepo:  couponRepo,
		validator:   validator,
		maxQuantity: maxQuantity,
		now:         time.Now,
	}
}

type AddItemRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type UpdateItemRequest struct {
	Action string `json:"action"` // inc, dec, updateSize
	Size   string `json:"size,omitempty"`
}

func (u *CartUsecase) AddItem(ctx context.Context, userID string, req AddItemRequest) (*domain.CartView, error) {
	if req.ProductID == "" {
		return nil, domain.NewValidationError("productId is required")
	}
	if req.Quantity < 1 {
		return nil, domain.NewValidationError("quantity must be at least 1")
	}
	if err := u.checkLineQuantity(req.Quantity); err != nil {
		return nil, err
	}

	product, err := u.productRepo.GetByID(ctx, req.ProductID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !product.IsActive) {
		return nil, domain.NewNotFoundError("product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	// Checked against live stock only; nothing is reserved until the order debits it.
	if req.Quantity > product.CountInStock {
		return nil, domain.NewInsufficientStockError("only %d units of %s in stock", product.CountInStock, product.Name)
	}

	cart, err := u.cartRepo.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		cart = &domain.Cart{
			UserID: userID,
			Items:  []domain.CartItem{newCartItem(req)},
		}
		if err := u.cartRepo.Save(ctx, cart); err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		logger.WithContext(ctx).Debug().Str("product_id", req.ProductID).Msg("Cart created")
		return u.view(ctx, cart, map[string]*domain.Product{product.ID: product}, nil, false), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].Matches(req.ProductID, req.Size, req.Color) {
			if err := u.checkLineQuantity(cart.Items[i].Quantity + req.Quantity); err != nil {
				return nil, err
			}
			cart.Items[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, newCartItem(req))
	}

	return u.revalidateAndSave(ctx, cart)
}

// GetCart never fails for a missing cart; it returns the empty shape instead. Items whose
// product was deleted are left out of the view but kept in the document.
func (u *CartUsecase) GetCart(ctx context.Context, userID string) (*domain.CartView, error) {
	cart, err := u.cartRepo.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return emptyCartView(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	products, err := u.products(ctx, cart)
	if err != nil {
		return nil, err
	}

	coupon, removed, err := u.validator.Revalidate(ctx, cart, toLines(cart, products))
	if err != nil {
		return nil, err
	}
	if removed {
		if err := u.cartRepo.Save(ctx, cart); err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
	}
	return u.view(ctx, cart, products, coupon, removed), nil
}

func (u *CartUsecase) UpdateItem(ctx context.Context, userID, itemID string, req UpdateItemRequest) (*domain.CartView, error) {
	cart, err := u.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.NewNotFoundError("cart item not found")
	}

	item := &cart.Items[idx]
	switch req.Action {
	case domain.CartActionIncrement:
		if err := u.checkLineQuantity(item.Quantity + 1); err != nil {
			return nil, err
		}
		item.Quantity++
	case domain.CartActionDecrement:
		// Floors at 1; removal goes through RemoveItem.
		if item.Quantity > 1 {
			item.Quantity--
		}
	case domain.CartActionUpdateSize:
		if size := strings.TrimSpace(req.Size); size != "" {
			item.Size = size
			if j := matchingLine(cart.Items, idx); j >= 0 {
				if err := u.checkLineQuantity(cart.Items[j].Quantity + item.Quantity); err != nil {
					return nil, err
				}
				cart.Items[j].Quantity += item.Quantity
				cart.Items = slices.Delete(cart.Items, idx, idx+1)
			}
		}
	default:
		return nil, domain.NewValidationError("invalid action %q", req.Action)
	}

	return u.revalidateAndSave(ctx, cart)
}

// checkLineQuantity bounds the quantity of a single cart line. A zero cap disables it.
func (u *CartUsecase) checkLineQuantity(qty int) error {
	if u.maxQuantity > 0 && qty > u.maxQuantity {
		return domain.NewValidationError("quantity cannot exceed %d", u.maxQuantity)
	}
	return nil
}

// matchingLine returns the index of another line with the same (product, size, color)
// as items[idx], or -1.
func matchingLine(items []domain.CartItem, idx int) int {
	it := items[idx]
	for i := range items {
		if i != idx && items[i].Matches(it.ProductID, it.Size, it.Color) {
			return i
		}
	}
	return -1
}

// RemoveItem is a no-op for an unknown item id.
func (u *CartUsecase) RemoveItem(ctx context.Context, userID, itemID string) (*domain.CartView, error) {
	cart, err := u.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := cart.Items[:0]
	for _, it := range cart.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	cart.Items = kept

	return u.revalidateAndSave(ctx, cart)
}

// ClearCart deletes the cart; it succeeds when there is none.
func (u *CartUsecase) ClearCart(ctx context.Context, userID string) error {
	if err := u.cartRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// ApplyCoupon attaches a coupon after checking it against the current cart.
func (u *CartUsecase) ApplyCoupon(ctx context.Context, userID, code string) (*domain.CartView, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.NewValidationError("coupon code is required")
	}

	cart, err := u.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	coupon, err := u.couponRepo.GetByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError("invalid coupon code")
	}
	if err != nil {
		return nil, fmt.Errorf("load coupon: %w", err)
	}

	switch {
	case !coupon.IsActive:
		return nil, domain.NewValidationError("coupon %s is not active", code)
	case coupon.IsExpired(u.now()):
		return nil, domain.NewValidationError("coupon %s has expired", code)
	case coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit:
		return nil, domain.NewValidationError("coupon %s usage limit reached", code)
	case coupon.UsedBy(userID):
		return nil, domain.NewValidationError("coupon %s has already been used", code)
	}

	products, err := u.products(ctx, cart)
	if err != nil {
		return nil, err
	}
	subtotal := pricing.CalculateBill(toLines(cart, products), nil).TotalExclTax
	if float64(subtotal) < coupon.MinOrderAmount {
		return nil, domain.NewValidationError("minimum order amount of %d required for coupon %s",
			pricing.Round(coupon.MinOrderAmount), code)
	}

	id := coupon.ID.String()
	cart.AppliedCoupon = &id
	if err := u.cartRepo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return u.view(ctx, cart, products, coupon, false), nil
}

func (u *CartUsecase) RemoveCoupon(ctx context.Context, userID string) (*domain.CartView, error) {
	cart, err := u.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.AppliedCoupon = nil
	if err := u.cartRepo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	products, err := u.products(ctx, cart)
	if err != nil {
		return nil, err
	}
	return u.view(ctx, cart, products, nil, false), nil
}

// --- Helpers ---

func (u *CartUsecase) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := u.cartRepo.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError("cart not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

func (u *CartUsecase) products(ctx context.Context, cart *domain.Cart) (map[string]*domain.Product, error) {
	ids := make([]string, 0, len(cart.Items))
	seen := make(map[string]bool, len(cart.Items))
	for _, it := range cart.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	products, err := u.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}
	return products, nil
}

func (u *CartUsecase) revalidateAndSave(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	products, err := u.products(ctx, cart)
	if err != nil {
		return nil, err
	}

	coupon, removed, err := u.validator.Revalidate(ctx, cart, toLines(cart, products))
	if err != nil {
		return nil, err
	}
	if err := u.cartRepo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return u.view(ctx, cart, products, coupon, removed), nil
}

func (u *CartUsecase) view(ctx context.Context, cart *domain.Cart, products map[string]*domain.Product, coupon *domain.Coupon, removed bool) *domain.CartView {
	v := &domain.CartView{
		Items:         make([]domain.CartLine, 0, len(cart.Items)),
		AppliedCoupon: coupon,
		CouponRemoved: removed,
	}

	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok {
			logger.WithContext(ctx).Debug().Str("product_id", it.ProductID).Msg("Skipping cart item with missing product")
			continue
		}
		unit := pricing.UnitPrice(p)
		unitWithTax, lineTotal := pricing.DisplayLine(unit, it.Quantity)

		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		v.Items = append(v.Items, domain.CartLine{
			ItemID:           it.ID,
			ProductID:        p.ID,
			Name:             p.Name,
			Image:            image,
			Size:             it.Size,
			Color:            it.Color,
			Quantity:         it.Quantity,
			CountInStock:     p.CountInStock,
			UnitPrice:        unit,
			UnitPriceWithTax: unitWithTax,
			LineTotal:        lineTotal,
		})
	}

	v.Bill = pricing.CalculateBill(toLines(cart, products), coupon)
	return v
}

func toLines(cart *domain.Cart, products map[string]*domain.Product) []pricing.Line {
	lines := make([]pricing.Line, 0, len(cart.Items))
	for _, it := range cart.Items {
		lines = append(lines, pricing.Line{Product: products[it.ProductID], Quantity: it.Quantity})
	}
	return lines
}

func newCartItem(req AddItemRequest) domain.CartItem {
	return domain.CartItem{
		ID:        uuid.NewString(),
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	}
}

func emptyCartView() *domain.CartView {
	return &domain.CartView{
		Items: []domain.CartLine{},
		Bill:  pricing.CalculateBill(nil, nil),
	}
}
