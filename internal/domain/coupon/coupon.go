package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the subtotal, optionally
	// capped at MaxDiscount.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "FIXED"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is unknown or inactive.
	ErrInvalidCoupon = errors.New("invalid or expired coupon")
	// ErrCouponExpired is returned when a coupon is outside its validity window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// MinOrderAmountError indicates the order subtotal is below the coupon's
// minimum order amount.
type MinOrderAmountError struct {
	Code     string
	Required decimal.Decimal
}

func (e *MinOrderAmountError) Error() string {
	return "minimum order amount for coupon " + e.Code + " is " + e.Required.String()
}

// Coupon is a discount rule redeemable at checkout.
//
// Codes are stored upper-case and matched case-insensitively. UsedCount is
// mutated only inside the order reservation transaction and never exceeds
// UsageLimit when one is set.
type Coupon struct {
	ID             string
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount decimal.Decimal
	// MaxDiscount caps a percentage discount. Nil means uncapped.
	MaxDiscount *decimal.Decimal
	ValidFrom   time.Time
	ValidUntil  time.Time
	// UsageLimit bounds total redemptions. Nil means unlimited.
	UsageLimit *int
	UsedCount  int
	Active     bool
	CreatedAt  time.Time
}

// NormalizeCode canonicalizes a coupon code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides lookup and administration of coupons.
type Repository interface {
	// FindActiveByCode returns the active coupon for the code
	// (case-insensitive), or ErrInvalidCoupon when none exists.
	FindActiveByCode(ctx context.Context, code string) (*Coupon, error)
	// ListActiveCodes returns the codes of all active coupons, for
	// prefilter warm-up.
	ListActiveCodes(ctx context.Context) ([]string, error)

	GetByID(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
}
