package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greenbasket/commerce-api/internal/domain/coupon"
)

// CartLine is one requested product/quantity pair, as supplied by the caller.
type CartLine struct {
	ProductID string
	Quantity  int
}

// PricedLine is a cart line with its resolved unit price. Immutable once
// computed.
type PricedLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Amount is the fully computed pricing breakdown for a cart. Ephemeral: it is
// either discarded or consumed to create a persisted Order.
//
// Invariant: Total = Subtotal + ShippingCost - Discount, and Total > 0.
type Amount struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	WeightKg     decimal.Decimal
	Lines        []PricedLine
	Coupon       *coupon.Coupon
}

// Customer holds the contact and delivery fields captured at checkout.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	Region    string
	Pincode   string
}

// Name returns the customer's full name as stored on the order.
func (c Customer) Name() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// PaymentMethod enumerates how an order is paid.
type PaymentMethod string

const (
	PaymentRazorpay PaymentMethod = "RAZORPAY"
	PaymentCOD      PaymentMethod = "COD"
)

// PaymentStatus tracks whether funds were received.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// Status is the order workflow state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// ValidStatus reports whether s is a known workflow state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Order is a persisted customer order with its pricing breakdown.
type Order struct {
	ID               string
	Number           string
	Customer         Customer
	Subtotal         decimal.Decimal
	ShippingCost     decimal.Decimal
	Discount         decimal.Decimal
	Total            decimal.Decimal
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	Status           Status
	GatewayOrderID   string
	GatewayPaymentID string
	CouponID         string
	Lines            []PricedLine
	CreatedAt        time.Time
}

// TrackingEvent is one entry in an order's tracking history.
type TrackingEvent struct {
	OrderID string
	Status  Status
	Note    string
	At      time.Time
}

// ListFilter selects and pages orders for administrative listing.
type ListFilter struct {
	Status Status
	Page   int
	Limit  int
}

// Stats is the dashboard aggregate over all orders.
type Stats struct {
	TotalOrders  int
	ByStatus     map[Status]int
	TotalRevenue decimal.Decimal
	TodayOrders  int
}

// Store persists orders.
//
// Create runs a single atomic transaction: it conditionally decrements stock
// for every line (requiring stock >= quantity at commit time), inserts the
// order with its line items and initial tracking event, and, when CouponID
// is set, increments that coupon's usage counter bounded by its limit.
// All writes commit together or none do.
type Store interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id string, status Status, note string) error
	Stats(ctx context.Context) (*Stats, error)
}
