package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/greenbasket/commerce-api/internal/domain/coupon"
	"github.com/greenbasket/commerce-api/internal/domain/payment"
	"github.com/greenbasket/commerce-api/internal/domain/product"
	"github.com/greenbasket/commerce-api/internal/domain/shipping"
)

// amountTolerancePaise is the maximum accepted difference between the
// gateway-captured amount and the server-side recomputed total. One smallest
// currency unit absorbs rounding ambiguity; anything larger is rejected.
const amountTolerancePaise = 1

var paiseFactor = decimal.NewFromInt(100)

// Paise converts a rupee amount to integer paise, the gateway wire unit.
func Paise(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(paiseFactor).IntPart()
}

// Hook is a post-commit side effect. Hooks run asynchronously after an order
// is persisted; their failures are logged and never affect the order result.
type Hook interface {
	OrderCreated(ctx context.Context, o *Order) error
}

// CheckoutRequest is the validated input for pricing and placing an order.
type CheckoutRequest struct {
	Lines      []CartLine
	Region     string
	CouponCode string
	Customer   Customer
}

// PaymentOrderResult is the outcome of creating a remote payment order:
// the gateway order to hand to the client and the amount it was priced from.
type PaymentOrderResult struct {
	GatewayOrder *payment.GatewayOrder
	Amount       *Amount
}

// Service prices carts and finalizes orders. All collaborators are injected;
// the service itself holds no mutable state and is safe for concurrent use.
type Service struct {
	products product.Repository
	quoter   *shipping.Quoter
	coupons  coupon.Validator
	gateway  payment.Gateway
	store    Store
	hooks    []Hook
	lg       *zap.Logger
}

// NewService creates an order Service with the required collaborators.
func NewService(
	products product.Repository,
	quoter *shipping.Quoter,
	coupons coupon.Validator,
	gateway payment.Gateway,
	store Store,
	lg *zap.Logger,
	hooks ...Hook,
) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		products: products,
		quoter:   quoter,
		coupons:  coupons,
		gateway:  gateway,
		store:    store,
		hooks:    hooks,
		lg:       lg,
	}
}

// ComputeAmount prices a cart for the given destination region and optional
// coupon code. It has no side effects and recomputes identically for
// identical inputs; callers must never trust a client-supplied total instead.
func (s *Service) ComputeAmount(ctx context.Context, lines []CartLine, region, couponCode string) (*Amount, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	subtotal := decimal.Zero
	weightKg := decimal.Zero
	priced := make([]PricedLine, len(lines))

	for i, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if p.Stock < line.Quantity {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: line.Quantity,
			}
		}

		unitWeight, err := product.ParseWeight(p.Weight)
		if err != nil {
			return nil, errors.Wrapf(err, "product %s", p.ID)
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		unitPrice := p.UnitPrice()

		priced[i] = PricedLine{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
		}
		subtotal = subtotal.Add(unitPrice.Mul(qty))
		weightKg = weightKg.Add(unitWeight.Mul(qty))
	}

	quote, err := s.quoter.QuoteFor(ctx, region, weightKg)
	if err != nil {
		return nil, errors.Wrap(err, "quote shipping")
	}

	discount := decimal.Zero
	var applied *coupon.Coupon
	if couponCode != "" {
		applied, err = s.coupons.Validate(ctx, couponCode, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		discount, err = coupon.Discount(applied, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "compute discount")
		}
	}

	total := subtotal.Add(quote.Cost).Sub(discount).Round(2)
	if !total.IsPositive() {
		return nil, ErrInvalidOrderAmount
	}

	return &Amount{
		Subtotal:     subtotal.Round(2),
		ShippingCost: quote.Cost,
		Discount:     discount,
		Total:        total,
		WeightKg:     weightKg,
		Lines:        priced,
		Coupon:       applied,
	}, nil
}

// CreatePaymentOrder prices the cart and creates the remote payment order for
// the total. Nothing is persisted locally; stock is reserved only after the
// payment is verified.
func (s *Service) CreatePaymentOrder(ctx context.Context, req CheckoutRequest) (*PaymentOrderResult, error) {
	amount, err := s.ComputeAmount(ctx, req.Lines, req.Region, req.CouponCode)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("receipt_%d", time.Now().UnixMilli())
	gwOrder, err := s.gateway.CreateOrder(ctx, Paise(amount.Total), "INR", receipt, map[string]string{
		"order_type": "product_order",
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gateway order")
	}

	return &PaymentOrderResult{GatewayOrder: gwOrder, Amount: amount}, nil
}

// VerifyAndFinalize verifies a captured online payment against a server-side
// recomputation of the order amount, then reserves stock and persists the
// order. The client-supplied signature is recorded but the trust anchor is
// the authoritative gateway fetch.
func (s *Service) VerifyAndFinalize(ctx context.Context, gatewayOrderID, paymentID, signature string, req CheckoutRequest) (*Order, error) {
	_ = signature

	p, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return nil, payment.ErrNotFound
		}
		return nil, errors.Wrap(err, "fetch payment")
	}

	if p.OrderID != gatewayOrderID {
		return nil, payment.ErrOrderMismatch
	}
	if p.Status != payment.StatusCaptured {
		return nil, &payment.NotCapturedError{Status: p.Status}
	}

	amount, err := s.ComputeAmount(ctx, req.Lines, req.Region, req.CouponCode)
	if err != nil {
		return nil, err
	}

	want := Paise(amount.Total)
	if diff := want - p.Amount; diff > amountTolerancePaise || diff < -amountTolerancePaise {
		return nil, errors.Wrapf(ErrAmountMismatch, "captured %d paise, recomputed %d paise", p.Amount, want)
	}

	o := s.buildOrder(amount, req.Customer, PaymentRazorpay, PaymentPaid)
	o.GatewayOrderID = gatewayOrderID
	o.GatewayPaymentID = paymentID

	return s.finalize(ctx, o)
}

// CreateCODOrder places a cash-on-delivery order: no payment verification,
// payment pending, order confirmed immediately.
func (s *Service) CreateCODOrder(ctx context.Context, req CheckoutRequest) (*Order, error) {
	amount, err := s.ComputeAmount(ctx, req.Lines, req.Region, req.CouponCode)
	if err != nil {
		return nil, err
	}

	o := s.buildOrder(amount, req.Customer, PaymentCOD, PaymentPending)
	return s.finalize(ctx, o)
}

func (s *Service) buildOrder(amount *Amount, customer Customer, method PaymentMethod, payStatus PaymentStatus) *Order {
	o := &Order{
		ID:            uuid.New().String(),
		Number:        GenerateNumber(),
		Customer:      customer,
		Subtotal:      amount.Subtotal,
		ShippingCost:  amount.ShippingCost,
		Discount:      amount.Discount,
		Total:         amount.Total,
		PaymentMethod: method,
		PaymentStatus: payStatus,
		Status:        StatusConfirmed,
		Lines:         amount.Lines,
		CreatedAt:     time.Now().UTC(),
	}
	if amount.Coupon != nil {
		o.CouponID = amount.Coupon.ID
	}
	return o
}

// finalize persists the order through the store's reservation transaction and
// fires post-commit hooks.
func (s *Service) finalize(ctx context.Context, o *Order) (*Order, error) {
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	s.runHooks(o)
	return o, nil
}

// runHooks fires every post-commit hook in its own goroutine. Hooks are
// detached from the request context so a client disconnect does not cancel
// notifications.
func (s *Service) runHooks(o *Order) {
	for _, h := range s.hooks {
		go func(h Hook) {
			defer func() {
				if rec := recover(); rec != nil {
					s.lg.Error("post-commit hook panicked",
						zap.String("order_id", o.ID),
						zap.Any("panic", rec),
					)
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := h.OrderCreated(ctx, o); err != nil {
				s.lg.Warn("post-commit hook failed",
					zap.String("order_id", o.ID),
					zap.Error(err),
				)
			}
		}(h)
	}
}
