// Package shipping talks to the Shiprocket REST API. All calls are single attempts bounded by
// the HTTP client timeout; retrying is left to the operator.
package shipping

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"krume-backend/config"
	"krume-backend/internal/domain"
	"krume-backend/internal/infrastructure/metrics"
	"krume-backend/pkg/cache"

	"github.com/goccy/go-json"
)

const tokenCacheKey = "shipping:token"

// ErrNotConfigured is returned by every call when credentials are missing.
var ErrNotConfigured = errors.New("shipping provider not configured")

// Package dimensions sent with every shipment. The store ships everything in one box size.
const (
	defaultLength  = 30.0
	defaultBreadth = 25.0
	defaultHeight  = 5.0
	defaultWeight  = 0.5
)

type Client struct {
	baseURL        string
	email          string
	password       string
	pickupLocation string
	tokenTTL       time.Duration

	httpClient *http.Client
	cache      cache.CacheService
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewClient creates a shipping gateway. Without credentials it still returns a client whose
// calls fail with ErrNotConfigured, so the order flow logs and moves on.
func NewClient(cfg *config.Config, c cache.CacheService, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.ShippingBaseURL, "/"),
		email:          cfg.ShippingEmail,
		password:       cfg.ShippingPassword,
		pickupLocation: cfg.ShippingPickupLocation,
		tokenTTL:       cfg.ShippingTokenTTL,
		httpClient:     &http.Client{Timeout: cfg.ShippingTimeout},
		cache:          c,
		metrics:        m,
		now:            time.Now,
	}
}

var _ domain.ShippingGateway = (*Client)(nil)

func (c *Client) configured() bool {
	return c.email != "" && c.password != ""
}

// --- Wire types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type orderLine struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Units        int    `json:"units"`
	SellingPrice int64  `json:"selling_price"`
}

type forwardOrderRequest struct {
	OrderID           string      `json:"order_id"`
	OrderDate         string      `json:"order_date"`
	PickupLocation    string      `json:"pickup_location"`
	BillingName       string      `json:"billing_customer_name"`
	BillingAddress    string      `json:"billing_address"`
	BillingCity       string      `json:"billing_city"`
	BillingPincode    string      `json:"billing_pincode"`
	BillingState      string      `json:"billing_state"`
	BillingCountry    string      `json:"billing_country"`
	BillingPhone      string      `json:"billing_phone"`
	ShippingIsBilling bool        `json:"shipping_is_billing"`
	OrderItems        []orderLine `json:"order_items"`
	PaymentMethod     string      `json:"payment_method"`
	ShippingCharges   int64       `json:"shipping_charges"`
	SubTotal          int64       `json:"sub_total"`
	Length            float64     `json:"length"`
	Breadth           float64     `json:"breadth"`
	Height            float64     `json:"height"`
	Weight            float64     `json:"weight"`
}

type returnOrderRequest struct {
	OrderID         string      `json:"order_id"`
	OrderDate       string      `json:"order_date"`
	PickupName      string      `json:"pickup_customer_name"`
	PickupAddress   string      `json:"pickup_address"`
	PickupCity      string      `json:"pickup_city"`
	PickupState     string      `json:"pickup_state"`
	PickupCountry   string      `json:"pickup_country"`
	PickupPincode   string      `json:"pickup_pincode"`
	PickupPhone     string      `json:"pickup_phone"`
	ShippingName    string      `json:"shipping_customer_name"`
	ShippingAddress string      `json:"shipping_address"`
	OrderItems      []orderLine `json:"order_items"`
	PaymentMethod   string      `json:"payment_method"`
	SubTotal        int64       `json:"sub_total"`
	Length          float64     `json:"length"`
	Breadth         float64     `json:"breadth"`
	Height          float64     `json:"height"`
	Weight          float64     `json:"weight"`
}

type createOrderResponse struct {
	OrderID    json.Number `json:"order_id"`
	ShipmentID json.Number `json:"shipment_id"`
	Status     string      `json:"status"`
}

type cancelRequest struct {
	IDs []int64 `json:"ids"`
}

// --- Gateway ---

// Authenticate returns the cached token while it is valid and logs in otherwise.
func (c *Client) Authenticate(ctx context.Context) (token string, err error) {
	defer func() { c.metrics.GatewayCall("authenticate", err) }()

	if !c.configured() {
		return "", ErrNotConfigured
	}
	if v, ok := c.cache.Get(tokenCacheKey); ok {
		if t, ok := v.(string); ok && t != "" {
			return t, nil
		}
	}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", loginRequest{Email: c.email, Password: c.password}, &resp); err != nil {
		return "", fmt.Errorf("shipping login: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("shipping login: empty token")
	}

	c.cache.Set(tokenCacheKey, resp.Token, c.tokenTTL)
	return resp.Token, nil
}

func (c *Client) CreateForwardOrder(ctx context.Context, order *domain.Order, token string) (ref *domain.ShipmentRef, err error) {
	defer func() { c.metrics.GatewayCall("create_forward_order", err) }()

	if !c.configured() {
		return nil, ErrNotConfigured
	}

	addr := order.ShippingAddress
	req := forwardOrderRequest{
		OrderID:           order.ID,
		OrderDate:         c.orderDate(order),
		PickupLocation:    c.pickupLocation,
		BillingName:       addr.FullName,
		BillingAddress:    addr.Address,
		BillingCity:       addr.City,
		BillingPincode:    addr.PostalCode,
		BillingState:      addr.State,
		BillingCountry:    addr.Country,
		BillingPhone:      addr.Phone,
		ShippingIsBilling: true,
		OrderItems:        toLines(order.Items),
		PaymentMethod:     paymentMethod(order.PaymentMethod),
		ShippingCharges:   order.ShippingPrice,
		SubTotal:          order.TotalPrice - order.ShippingPrice,
		Length:            defaultLength,
		Breadth:           defaultBreadth,
		Height:            defaultHeight,
		Weight:            defaultWeight,
	}

	var resp createOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders/create/adhoc", token, req, &resp); err != nil {
		return nil, fmt.Errorf("create shipment for order %s: %w", order.ID, err)
	}
	if resp.OrderID == "" {
		return nil, fmt.Errorf("create shipment for order %s: provider returned no order id", order.ID)
	}

	return &domain.ShipmentRef{
		ExternalOrderID:    resp.OrderID.String(),
		ExternalShipmentID: resp.ShipmentID.String(),
	}, nil
}

func (c *Client) CreateReturnOrder(ctx context.Context, order *domain.Order, token string) (id string, err error) {
	defer func() { c.metrics.GatewayCall("create_return_order", err) }()

	if !c.configured() {
		return "", ErrNotConfigured
	}

	addr := order.ShippingAddress
	req := returnOrderRequest{
		OrderID:         "R-" + order.ID,
		OrderDate:       c.now().Format("2006-01-02 15:04"),
		PickupName:      addr.FullName,
		PickupAddress:   addr.Address,
		PickupCity:      addr.City,
		PickupState:     addr.State,
		PickupCountry:   addr.Country,
		PickupPincode:   addr.PostalCode,
		PickupPhone:     addr.Phone,
		ShippingName:    c.pickupLocation,
		ShippingAddress: c.pickupLocation,
		OrderItems:      toLines(order.Items),
		PaymentMethod:   "Prepaid",
		SubTotal:        order.TotalPrice - order.ShippingPrice,
		Length:          defaultLength,
		Breadth:         defaultBreadth,
		Height:          defaultHeight,
		Weight:          defaultWeight,
	}

	var resp createOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders/create/return", token, req, &resp); err != nil {
		return "", fmt.Errorf("create return for order %s: %w", order.ID, err)
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("create return for order %s: provider returned no order id", order.ID)
	}
	return resp.OrderID.String(), nil
}

func (c *Client) CancelOrder(ctx context.Context, externalOrderID, token string) (err error) {
	defer func() { c.metrics.GatewayCall("cancel_order", err) }()

	if !c.configured() {
		return ErrNotConfigured
	}

	id, err := strconv.ParseInt(externalOrderID, 10, 64)
	if err != nil {
		return fmt.Errorf("cancel shipment: invalid provider order id %q", externalOrderID)
	}
	if err := c.do(ctx, http.MethodPost, "/orders/cancel", token, cancelRequest{IDs: []int64{id}}, nil); err != nil {
		return fmt.Errorf("cancel shipment %s: %w", externalOrderID, err)
	}
	return nil
}

// --- Helpers ---

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Token revoked early; the next Authenticate logs in again.
		c.cache.Delete(tokenCacheKey)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider error (status %d): %s", resp.StatusCode, string(raw))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) orderDate(order *domain.Order) string {
	t := order.CreatedAt
	if t.IsZero() {
		t = c.now()
	}
	return t.Format("2006-01-02 15:04")
}

func toLines(items []domain.OrderItem) []orderLine {
	lines := make([]orderLine, 0, len(items))
	for _, it := range items {
		sku := it.ProductID
		if it.Size != "" {
			sku += "-" + it.Size
		}
		if it.Color != "" {
			sku += "-" + it.Color
		}
		lines = append(lines, orderLine{
			Name:         it.Name,
			SKU:          sku,
			Units:        it.Quantity,
			SellingPrice: it.Price,
		})
	}
	return lines
}

func paymentMethod(method string) string {
	if method == domain.PaymentMethodCOD {
		return "COD"
	}
	return "Prepaid"
}
