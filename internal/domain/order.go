package domain

import (
	"context"
	"time"
)

type OrderFilter struct {
	Page   int
	Limit  int
	Status string
}

// --- Order Entities ---

type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderItem is a snapshot taken at creation; it never follows live product prices.
type OrderItem struct {
	ProductID string `json:"product"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type ReturnInfo struct {
	Requested        bool      `json:"requested"`
	Reason           string    `json:"reason"`
	Comments         string    `json:"comments"`
	Type             string    `json:"type"`
	RequestedAt      time.Time `json:"requestedAt"`
	Status           string    `json:"status"`
	AdminComment     string    `json:"adminComment,omitempty"`
	ExternalReturnID string    `json:"externalReturnId,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	ItemsPrice      int64           `json:"itemsPrice"`
	TaxPrice        int64           `json:"taxPrice"`
	ShippingPrice   int64           `json:"shippingPrice"`
	TotalPrice      int64           `json:"totalPrice"`
	CouponCode      string          `json:"couponCode,omitempty"`

	OrderStatus        string      `json:"orderStatus"`
	IsPaid             bool        `json:"isPaid"`
	IsDelivered        bool        `json:"isDelivered"`
	DeliveredAt        *time.Time  `json:"deliveredAt"`
	ExternalOrderID    string      `json:"externalOrderId,omitempty"`
	ExternalShipmentID string      `json:"externalShipmentId,omitempty"`
	ReturnInfo         *ReturnInfo `json:"returnInfo,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ShipmentRef is what the shipping provider returns for a forward order.
type ShipmentRef struct {
	ExternalOrderID    string
	ExternalShipmentID string
}

// --- Interfaces ---

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	// GetByID returns ErrNotFound when the order does not exist.
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByUserID(ctx context.Context, userID string) ([]Order, error)
	GetAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	// Update persists the mutable lifecycle fields only if the stored status still equals
	// expectedStatus. It returns ErrNotFound when the compare fails.
	Update(ctx context.Context, order *Order, expectedStatus string) error
	SetShipment(ctx context.Context, id string, ref ShipmentRef) error
	SetReturnExternalID(ctx context.Context, id, externalReturnID string) error
}

// ShippingGateway is the remote shipment provider. Every call is best-effort from the
// order lifecycle's point of view.
type ShippingGateway interface {
	Authenticate(ctx context.Context) (string, error)
	CreateForwardOrder(ctx context.Context, order *Order, token string) (*ShipmentRef, error)
	CreateReturnOrder(ctx context.Context, order *Order, token string) (string, error)
	CancelOrder(ctx context.Context, externalOrderID, token string) error
}

// OrderSummary is the payload of the confirmation email.
type OrderSummary struct {
	OrderID       string
	CustomerName  string
	Items         []OrderItem
	ItemsPrice    int64
	TaxPrice      int64
	ShippingPrice int64
	TotalPrice    int64
	PaymentMethod string
}

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, userEmail string, summary OrderSummary) error
}

type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
