// Package payment defines the contract with the external payment gateway.
// Amounts cross this boundary in the smallest currency unit (paise for INR),
// matching the gateway's wire format.
package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Status is the gateway-reported state of a payment.
type Status string

const (
	// StatusCaptured means funds have been secured, not merely authorized.
	StatusCaptured   Status = "captured"
	StatusAuthorized Status = "authorized"
	StatusCreated    Status = "created"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

var (
	// ErrNotFound is returned when the gateway has no payment with the
	// requested identifier.
	ErrNotFound = errors.New("payment not found")
	// ErrOrderMismatch is returned when a fetched payment belongs to a
	// different gateway order than the caller claimed.
	ErrOrderMismatch = errors.New("payment does not match order")
)

// NotCapturedError indicates the payment exists but funds were not captured.
type NotCapturedError struct {
	Status Status
}

func (e *NotCapturedError) Error() string {
	return fmt.Sprintf("payment not captured: status %q", e.Status)
}

// Payment is a gateway payment as fetched by id.
type Payment struct {
	ID       string
	OrderID  string
	Status   Status
	Amount   int64 // smallest currency unit
	Currency string
}

// GatewayOrder is a remote payment order created ahead of capture.
type GatewayOrder struct {
	ID       string
	Amount   int64 // smallest currency unit
	Currency string
	Receipt  string
}

// Gateway is the narrow contract the checkout flow needs from the payment
// provider.
type Gateway interface {
	// CreateOrder creates a remote payment order for the given amount.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error)
	// FetchPayment retrieves a payment by its gateway identifier, returning
	// ErrNotFound when it does not exist.
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
}
