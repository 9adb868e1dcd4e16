package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order validation and persistence.
var (
	ErrEmptyCart            = errors.New("cart items required")
	ErrInvalidOrderAmount   = errors.New("order total must be greater than zero")
	ErrAmountMismatch       = errors.New("payment amount does not match order amount")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrNotFound             = errors.New("order not found")
	ErrStorage              = errors.New("order storage unavailable")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a cart line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a product cannot cover the requested
// quantity. It is produced both by the pre-check during amount computation
// and by the conditional decrement at commit time; callers cannot and should
// not distinguish the two.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		name, e.Available, e.Requested)
}
