package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"krume-backend/internal/domain"
	"krume-backend/internal/infrastructure/background"
	"krume-backend/internal/infrastructure/metrics"
	"krume-backend/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type OrderUsecase struct {
	orderRepo  domain.OrderRepository
	couponRepo domain.CouponRepository
	cartRepo   domain.CartRepository
	ledger     *InventoryLedger
	gateway    domain.ShippingGateway
	notifier   domain.Notifier
	runner     *background.Runner
	metrics    *metrics.Metrics

	returnWindowDays int
	now              func() time.Time
}

type OrderDeps struct {
	Orders   domain.OrderRepository
	Coupons  domain.CouponRepository
	Carts    domain.CartRepository
	Ledger   *InventoryLedger
	Gateway  domain.ShippingGateway
	Notifier domain.Notifier
	Runner   *background.Runner
	Metrics  *metrics.Metrics
}

func NewOrderUsecase(deps OrderDeps, returnWindowDays int) *OrderUsecase {
	if returnWindowDays <= 0 {
		returnWindowDays = 7
	}
	return &OrderUsecase{
		orderRepo:        deps.Orders,
		couponRepo:       deps.Coupons,
		cartRepo:         deps.Carts,
		ledger:           deps.Ledger,
		gateway:          deps.Gateway,
		notifier:         deps.Notifier,
		runner:           deps.Runner,
		metrics:          deps.Metrics,
		returnWindowDays: returnWindowDays,
		now:              time.Now,
	}
}

// --- Requests ---

// CreateOrderRequest carries the client-computed totals. They are stored as sent.
type CreateOrderRequest struct {
	Items           []domain.OrderItem     `json:"orderItems"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ItemsPrice      int64                  `json:"itemsPrice"`
	TaxPrice        int64                  `json:"taxPrice"`
	ShippingPrice   int64                  `json:"shippingPrice"`
	TotalPrice      int64                  `json:"totalPrice"`
	CouponCode      string                 `json:"couponCode,omitempty"`
}

type ReturnRequest struct {
	Reason   string `json:"reason"`
	Comments string `json:"comments"`
	Type     string `json:"type"`
}

type ManageReturnRequest struct {
	Status       string `json:"status"`
	AdminComment string `json:"adminComment"`
}

// --- Create ---

// Create persists the order and then applies its side effects one by one. Stock debits,
// coupon usage and cart removal are best-effort once the order row exists; shipment
// submission and the confirmation email run in the background.
func (u *OrderUsecase) Create(ctx context.Context, user *domain.User, req CreateOrderRequest) (*domain.Order, error) {
	if err := validateCreate(&req); err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx)

	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      req.ItemsPrice,
		TaxPrice:        req.TaxPrice,
		ShippingPrice:   req.ShippingPrice,
		TotalPrice:      req.TotalPrice,
		CouponCode:      req.CouponCode,
		OrderStatus:     domain.OrderStatusProcessing,
	}
	if err := u.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	u.metrics.OrderCreated()
	log.Info().Str("order_id", order.ID).Int64("total", order.TotalPrice).Msg("Order created")

	for _, it := range order.Items {
		if err := u.ledger.Debit(ctx, it.ProductID, it.Size, it.Quantity, order.ID); err != nil {
			log.Error().Err(err).
				Str("order_id", order.ID).
				Str("product_id", it.ProductID).
				Int("quantity", it.Quantity).
				Msg("Stock debit failed, needs manual reconciliation")
		}
	}

	if order.CouponCode != "" {
		u.recordCouponUsage(ctx, order.CouponCode, user.ID)
	}

	if err := u.cartRepo.Delete(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("order_id", order.ID).Msg("Failed to clear cart after order")
	}

	snapshot := *order
	u.runner.Go(ctx, "shipment.create", func(ctx context.Context) error {
		return u.submitShipment(ctx, &snapshot)
	})
	if user.Email != "" {
		u.runner.Go(ctx, "email.order_confirmation", func(ctx context.Context) error {
			return u.notifier.SendOrderConfirmation(ctx, user.Email, summaryOf(&snapshot))
		})
	}

	return order, nil
}

func validateCreate(req *CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return domain.NewValidationError("no order items")
	}
	for i, it := range req.Items {
		if it.ProductID == "" {
			return domain.NewValidationError("orderItems[%d]: product is required", i)
		}
		if it.Quantity < 1 {
			return domain.NewValidationError("orderItems[%d]: quantity must be at least 1", i)
		}
	}

	a := req.ShippingAddress
	if a.FullName == "" || a.Phone == "" || a.Address == "" || a.City == "" || a.PostalCode == "" {
		return domain.NewValidationError("shipping address is incomplete")
	}

	switch req.PaymentMethod {
	case "":
		req.PaymentMethod = domain.PaymentMethodCOD
	case domain.PaymentMethodCOD, domain.PaymentMethodOnline:
	default:
		return domain.NewValidationError("unsupported payment method %q", req.PaymentMethod)
	}

	req.CouponCode = strings.ToUpper(strings.TrimSpace(req.CouponCode))
	return nil
}

func (u *OrderUsecase) recordCouponUsage(ctx context.Context, code, userID string) {
	log := logger.WithContext(ctx).With().Str("coupon", code).Logger()

	coupon, err := u.couponRepo.GetByCode(ctx, code)
	if err != nil {
		log.Warn().Err(err).Msg("Coupon on order could not be resolved")
		return
	}
	if err := u.couponRepo.RecordUsage(ctx, coupon.ID, userID); err != nil {
		log.Error().Err(err).Msg("Failed to record coupon usage")
	}
}

func (u *OrderUsecase) submitShipment(ctx context.Context, order *domain.Order) error {
	token, err := u.gateway.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate shipping gateway: %w", err)
	}
	ref, err := u.gateway.CreateForwardOrder(ctx, order, token)
	if err != nil {
		return err
	}
	if err := u.orderRepo.SetShipment(ctx, order.ID, *ref); err != nil {
		return fmt.Errorf("store shipment of order %s: %w", order.ID, err)
	}
	logger.WithContext(ctx).Info().
		Str("order_id", order.ID).
		Str("external_order_id", ref.ExternalOrderID).
		Msg("Shipment created")
	return nil
}

func summaryOf(o *domain.Order) domain.OrderSummary {
	return domain.OrderSummary{
		OrderID:       o.ID,
		CustomerName:  o.ShippingAddress.FullName,
		Items:         o.Items,
		ItemsPrice:    o.ItemsPrice,
		TaxPrice:      o.TaxPrice,
		ShippingPrice: o.ShippingPrice,
		TotalPrice:    o.TotalPrice,
		PaymentMethod: o.PaymentMethod,
	}
}

// --- Reads ---

func (u *OrderUsecase) GetMyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return u.orderRepo.GetByUserID(ctx, userID)
}

// GetOrder returns the order to its owner or to an admin.
func (u *OrderUsecase) GetOrder(ctx context.Context, user *domain.User, id string) (*domain.Order, error) {
	order, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(user, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (u *OrderUsecase) GetAllOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, domain.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	orders, total, err := u.orderRepo.GetAll(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return orders, domain.NewPagination(filter.Page, filter.Limit, total), nil
}

// --- Transitions ---

// UpdateStatus is the admin override. Intermediate provider statuses pass through as-is;
// only a cancelled order is frozen.
func (u *OrderUsecase) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, domain.NewValidationError("status is required")
	}

	order, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OrderStatus == domain.OrderStatusCancelled {
		return nil, domain.NewStateConflictError("cannot update a cancelled order")
	}

	prev := order.OrderStatus
	order.OrderStatus = status
	if status == domain.OrderStatusDelivered {
		now := u.now()
		order.DeliveredAt = &now
		order.IsDelivered = true
		// Cash on delivery is collected by the courier.
		order.IsPaid = true
	}

	if err := u.persist(ctx, order, prev); err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel moves a Processing order to Cancelled and restocks it. The status write is
// conditional, so of two racing cancels only one restocks.
func (u *OrderUsecase) Cancel(ctx context.Context, user *domain.User, id string) (*domain.Order, error) {
	order, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(user, order); err != nil {
		return nil, err
	}
	if order.OrderStatus != domain.OrderStatusProcessing {
		return nil, domain.NewStateConflictError("order cannot be cancelled in status %q", order.OrderStatus)
	}

	order.OrderStatus = domain.OrderStatusCancelled
	if err := u.persist(ctx, order, domain.OrderStatusProcessing); err != nil {
		return nil, err
	}

	u.restock(ctx, order, domain.StockReasonOrderCancelled)

	if order.ExternalShipmentID != "" {
		extID := order.ExternalOrderID
		u.runner.Go(ctx, "shipment.cancel", func(ctx context.Context) error {
			token, err := u.gateway.Authenticate(ctx)
			if err != nil {
				return fmt.Errorf("authenticate shipping gateway: %w", err)
			}
			return u.gateway.CancelOrder(ctx, extID, token)
		})
	}
	return order, nil
}

// RequestReturn opens a return on a delivered order within the return window. The window
// counts started days: exactly seven days after delivery is still day seven.
func (u *OrderUsecase) RequestReturn(ctx context.Context, user *domain.User, id string, req ReturnRequest) (*domain.Order, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, domain.NewValidationError("return reason is required")
	}

	order, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(user, order); err != nil {
		return nil, err
	}
	if order.OrderStatus != domain.OrderStatusDelivered {
		return nil, domain.NewStateConflictError("only delivered orders can be returned")
	}
	if order.DeliveredAt == nil {
		return nil, domain.NewStateConflictError("order has no delivery date")
	}

	now := u.now()
	days := int(math.Ceil(now.Sub(*order.DeliveredAt).Hours() / 24))
	if days > u.returnWindowDays {
		return nil, domain.NewStateConflictError("return window of %d days has expired", u.returnWindowDays)
	}
	if order.ReturnInfo != nil && order.ReturnInfo.Requested {
		return nil, domain.NewStateConflictError("return already requested")
	}

	order.ReturnInfo = &domain.ReturnInfo{
		Requested:   true,
		Reason:      reason,
		Comments:    strings.TrimSpace(req.Comments),
		Type:        normalizeReturnType(req.Type),
		RequestedAt: now,
		Status:      domain.ReturnStatusPending,
	}
	order.OrderStatus = domain.OrderStatusReturnRequested

	if err := u.persist(ctx, order, domain.OrderStatusDelivered); err != nil {
		return nil, err
	}
	return order, nil
}

func normalizeReturnType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return domain.DefaultReturnType
	}
	return cases.Title(language.English).String(t)
}

// ManageReturn applies the admin decision on a requested return.
func (u *OrderUsecase) ManageReturn(ctx context.Context, id string, req ManageReturnRequest) (*domain.Order, error) {
	if !slices.Contains([]string{domain.ReturnStatusApproved, domain.ReturnStatusRefunded, domain.ReturnStatusRejected}, req.Status) {
		return nil, domain.NewValidationError("invalid return status %q", req.Status)
	}

	order, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ri := order.ReturnInfo
	if ri == nil || !ri.Requested {
		return nil, domain.NewStateConflictError("no return requested for this order")
	}
	if !returnDecisionAllowed(order.OrderStatus, req.Status) {
		return nil, domain.NewStateConflictError("cannot mark return %s while order is %s", req.Status, order.OrderStatus)
	}

	prev := order.OrderStatus
	ri.Status = req.Status
	if c := strings.TrimSpace(req.AdminComment); c != "" {
		ri.AdminComment = c
	}

	switch req.Status {
	case domain.ReturnStatusApproved:
		order.OrderStatus = domain.OrderStatusReturnApproved
	case domain.ReturnStatusRefunded:
		order.OrderStatus = domain.OrderStatusReturned
		order.IsPaid = false
	case domain.ReturnStatusRejected:
		order.OrderStatus = domain.OrderStatusDelivered
	}

	if err := u.persist(ctx, order, prev); err != nil {
		return nil, err
	}

	switch req.Status {
	case domain.ReturnStatusRefunded:
		u.restock(ctx, order, domain.StockReasonReturnRefunded)
	case domain.ReturnStatusApproved:
		if order.ExternalShipmentID != "" {
			snapshot := *order
			u.runner.Go(ctx, "shipment.return", func(ctx context.Context) error {
				return u.submitReturn(ctx, &snapshot)
			})
		}
	}
	return order, nil
}

// returnDecisionAllowed reports whether a return decision may be taken from the order's
// current status. Approval and rejection only answer a pending request; a refund also
// follows an approval.
func returnDecisionAllowed(current, decision string) bool {
	switch decision {
	case domain.ReturnStatusApproved, domain.ReturnStatusRejected:
		return current == domain.OrderStatusReturnRequested
	case domain.ReturnStatusRefunded:
		return current == domain.OrderStatusReturnRequested || current == domain.OrderStatusReturnApproved
	}
	return false
}

func (u *OrderUsecase) submitReturn(ctx context.Context, order *domain.Order) error {
	token, err := u.gateway.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate shipping gateway: %w", err)
	}
	extID, err := u.gateway.CreateReturnOrder(ctx, order, token)
	if err != nil {
		return err
	}
	if err := u.orderRepo.SetReturnExternalID(ctx, order.ID, extID); err != nil {
		return fmt.Errorf("store return id of order %s: %w", order.ID, err)
	}
	return nil
}

// --- Helpers ---

func (u *OrderUsecase) load(ctx context.Context, id string) (*domain.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	return order, nil
}

func (u *OrderUsecase) persist(ctx context.Context, order *domain.Order, expected string) error {
	err := u.orderRepo.Update(ctx, order, expected)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewStateConflictError("order %s was modified concurrently, reload and retry", order.ID)
	}
	if err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}

	u.metrics.OrderTransition(order.OrderStatus)
	logger.WithContext(ctx).Info().
		Str("order_id", order.ID).
		Str("from", expected).
		Str("to", order.OrderStatus).
		Msg("Order status changed")
	return nil
}

// restock credits every line; a failed line is logged and the rest still go through.
func (u *OrderUsecase) restock(ctx context.Context, order *domain.Order, reason string) {
	for _, it := range order.Items {
		if err := u.ledger.Credit(ctx, it.ProductID, it.Size, it.Quantity, reason, order.ID); err != nil {
			logger.WithContext(ctx).Error().Err(err).
				Str("order_id", order.ID).
				Str("product_id", it.ProductID).
				Int("quantity", it.Quantity).
				Msg("Restock failed, needs manual reconciliation")
		}
	}
}

func authorize(user *domain.User, order *domain.Order) error {
	if user == nil {
		return domain.NewForbiddenError("not allowed to access this order")
	}
	if user.IsAdmin() || user.ID == order.UserID {
		return nil
	}
	return domain.NewForbiddenError("not allowed to access this order")
}
