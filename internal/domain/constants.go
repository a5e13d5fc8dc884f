package domain

// Order Statuses
const (
	OrderStatusProcessing      = "Processing"
	OrderStatusShipped         = "Shipped"
	OrderStatusDelivered       = "Delivered"
	OrderStatusCancelled       = "Cancelled"
	OrderStatusReturnRequested = "Return Requested"
	OrderStatusReturnApproved  = "Return Approved"
	OrderStatusReturned        = "Returned"
)

// Return Statuses
const (
	ReturnStatusPending  = "Pending"
	ReturnStatusApproved = "Approved"
	ReturnStatusRejected = "Rejected"
	ReturnStatusRefunded = "Refunded"
)

// Payment Methods
const (
	PaymentMethodCOD    = "COD"
	PaymentMethodOnline = "Online"
)

const DefaultReturnType = "Refund"

// List Exports for API
var OrderStatuses = []string{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturnRequested,
	OrderStatusReturnApproved,
	OrderStatusReturned,
}

var ReturnStatuses = []string{
	ReturnStatusPending,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusRefunded,
}
