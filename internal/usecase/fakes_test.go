package usecase

import (
	"context"
	"errors"
	"sync"

	"krume-backend/internal/domain"

	"github.com/google/uuid"
)

// --- Products ---

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	logs     []domain.InventoryLog
	adjustFn func(productID string) error
}

func newFakeProductRepo(products ...*domain.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: map[string]*domain.Product{}}
	for _, p := range products {
		p.SyncStock()
		r.products[p.ID] = p
	}
	return r
}

func cloneProduct(p *domain.Product) *domain.Product {
	c := *p
	c.Sizes = append([]domain.SizeStock(nil), p.Sizes...)
	c.SyncStock()
	return &c
}

func (r *fakeProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *fakeProductRepo) GetByIDs(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]*domain.Product{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Product
	for _, p := range r.products {
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			continue
		}
		out = append(out, *cloneProduct(p))
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = cloneProduct(p)
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.products[p.ID] = cloneProduct(p)
	return nil
}

func (r *fakeProductRepo) AdjustSizeStock(_ context.Context, productID, size string, delta int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adjustFn != nil {
		if err := r.adjustFn(productID); err != nil {
			return "", err
		}
	}
	p, ok := r.products[productID]
	if !ok || len(p.Sizes) == 0 {
		return "", domain.ErrNotFound
	}
	idx := 0
	for i, s := range p.Sizes {
		if s.Size == size {
			idx = i
			break
		}
	}
	p.Sizes[idx].Stock += delta
	p.SyncStock()
	return p.Sizes[idx].Size, nil
}

func (r *fakeProductRepo) CreateInventoryLog(_ context.Context, l *domain.InventoryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, *l)
	return nil
}

func (r *fakeProductRepo) stock(productID, size string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.products[productID].Sizes {
		if s.Size == size {
			return s.Stock
		}
	}
	return 0
}

func (r *fakeProductRepo) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
}

// --- Carts ---

type fakeCartRepo struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
	saves int
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[string]*domain.Cart{}}
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.CartItem(nil), c.Items...)
	if c.AppliedCoupon != nil {
		id := *c.AppliedCoupon
		out.AppliedCoupon = &id
	}
	return &out
}

func (r *fakeCartRepo) GetByUserID(_ context.Context, userID string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCart(c), nil
}

func (r *fakeCartRepo) Save(_ context.Context, c *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.carts[c.UserID] = cloneCart(c)
	return nil
}

func (r *fakeCartRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}

func (r *fakeCartRepo) stored(userID string) *domain.Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil
	}
	return cloneCart(c)
}

// --- Coupons ---

type fakeCouponRepo struct {
	mu      sync.Mutex
	coupons map[uuid.UUID]*domain.Coupon
}

func newFakeCouponRepo(coupons ...*domain.Coupon) *fakeCouponRepo {
	r := &fakeCouponRepo{coupons: map[uuid.UUID]*domain.Coupon{}}
	for _, c := range coupons {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		r.coupons[c.ID] = c
	}
	return r
}

func (r *fakeCouponRepo) Create(_ context.Context, c *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.coupons[c.ID] = &cp
	return nil
}

func (r *fakeCouponRepo) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeCouponRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCouponRepo) List(_ context.Context, limit, offset int) ([]domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Coupon
	for _, c := range r.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCouponRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.coupons)), nil
}

func (r *fakeCouponRepo) Update(_ context.Context, c *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coupons[c.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *c
	r.coupons[c.ID] = &cp
	return nil
}

func (r *fakeCouponRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coupons[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.coupons, id)
	return nil
}

func (r *fakeCouponRepo) RecordUsage(_ context.Context, id uuid.UUID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.UsedCount++
	c.UsersUsed = append(c.UsersUsed, userID)
	return nil
}

// --- Orders ---

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrderRepo(orders ...*domain.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: map[string]*domain.Order{}}
	for _, o := range orders {
		r.orders[o.ID] = cloneOrder(o)
	}
	return r
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	if o.ReturnInfo != nil {
		ri := *o.ReturnInfo
		c.ReturnInfo = &ri
	}
	return &c
}

func (r *fakeOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *fakeOrderRepo) GetByUserID(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Order{}
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) GetAll(_ context.Context, f domain.OrderFilter) ([]domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Order{}
	for _, o := range r.orders {
		if f.Status == "" || o.OrderStatus == f.Status {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) Update(_ context.Context, o *domain.Order, expected string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.ID]
	if !ok || cur.OrderStatus != expected {
		return domain.ErrNotFound
	}
	next := cloneOrder(o)
	next.ExternalOrderID = cur.ExternalOrderID
	next.ExternalShipmentID = cur.ExternalShipmentID
	r.orders[o.ID] = next
	return nil
}

func (r *fakeOrderRepo) SetShipment(_ context.Context, id string, ref domain.ShipmentRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.ExternalOrderID = ref.ExternalOrderID
	o.ExternalShipmentID = ref.ExternalShipmentID
	return nil
}

func (r *fakeOrderRepo) SetReturnExternalID(_ context.Context, id, extID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.ReturnInfo == nil {
		return domain.ErrNotFound
	}
	o.ReturnInfo.ExternalReturnID = extID
	return nil
}

func (r *fakeOrderRepo) get(id string) *domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOrder(r.orders[id])
}

// --- Collaborators ---

type fakeGateway struct {
	mu        sync.Mutex
	authErr   error
	createErr error
	forward   []string
	returns   []string
	cancelled []string
}

func (g *fakeGateway) Authenticate(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.authErr != nil {
		return "", g.authErr
	}
	return "token", nil
}

func (g *fakeGateway) CreateForwardOrder(_ context.Context, o *domain.Order, _ string) (*domain.ShipmentRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.forward = append(g.forward, o.ID)
	return &domain.ShipmentRef{ExternalOrderID: "SR-" + o.ID, ExternalShipmentID: "SH-" + o.ID}, nil
}

func (g *fakeGateway) CreateReturnOrder(_ context.Context, o *domain.Order, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.returns = append(g.returns, o.ID)
	return "RET-" + o.ID, nil
}

func (g *fakeGateway) CancelOrder(_ context.Context, extID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, extID)
	return nil
}

type sentMail struct {
	to      string
	summary domain.OrderSummary
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (n *fakeNotifier) SendOrderConfirmation(_ context.Context, to string, s domain.OrderSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to: to, summary: s})
	return nil
}

type fakeTx struct {
	calls int
}

func (t *fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

var errBoom = errors.New("boom")
