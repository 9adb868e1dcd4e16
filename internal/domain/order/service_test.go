package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/commerce-api/internal/domain/coupon"
	"github.com/greenbasket/commerce-api/internal/domain/payment"
	"github.com/greenbasket/commerce-api/internal/domain/product"
	"github.com/greenbasket/commerce-api/internal/domain/shipping"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]product.Product
	getErr error
}

func (m *mockProductRepo) List(context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockRateTable struct {
	rates map[string]*shipping.Rate
}

func (m *mockRateTable) FindActive(_ context.Context, region string) (*shipping.Rate, error) {
	if r, ok := m.rates[region]; ok {
		return r, nil
	}
	return nil, shipping.ErrRateNotFound
}

type mockCouponValidator struct {
	coupon *coupon.Coupon
	err    error
}

func (m *mockCouponValidator) Validate(context.Context, string, decimal.Decimal) (*coupon.Coupon, error) {
	return m.coupon, m.err
}

type mockGateway struct {
	payment   *payment.Payment
	fetchErr  error
	order     *payment.GatewayOrder
	createErr error

	createdAmounts []int64
}

func (m *mockGateway) CreateOrder(_ context.Context, amount int64, _, _ string, _ map[string]string) (*payment.GatewayOrder, error) {
	m.createdAmounts = append(m.createdAmounts, amount)
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.order != nil {
		return m.order, nil
	}
	return &payment.GatewayOrder{ID: "order_gw", Amount: amount, Currency: "INR"}, nil
}

func (m *mockGateway) FetchPayment(context.Context, string) (*payment.Payment, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.payment, nil
}

// memStore is an in-memory Store with the same conditional-decrement
// semantics as the real reservation transaction.
type memStore struct {
	mu      sync.Mutex
	stock   map[string]int
	created []*Order
	err     error
}

func (m *memStore) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	for _, l := range o.Lines {
		if avail, ok := m.stock[l.ProductID]; ok && avail < l.Quantity {
			return &InsufficientStockError{
				ProductID: l.ProductID,
				Available: avail,
				Requested: l.Quantity,
			}
		}
	}
	for _, l := range o.Lines {
		if _, ok := m.stock[l.ProductID]; ok {
			m.stock[l.ProductID] -= l.Quantity
		}
	}
	m.created = append(m.created, o)
	return nil
}

func (m *memStore) GetByID(context.Context, string) (*Order, error)        { return nil, nil }
func (m *memStore) List(context.Context, ListFilter) ([]Order, int, error) { return nil, 0, nil }
func (m *memStore) UpdateStatus(context.Context, string, Status, string) error {
	return nil
}
func (m *memStore) Stats(context.Context) (*Stats, error) { return nil, nil }

func (m *memStore) createdCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testProduct(id, name, price, offer, weight string, stock int) product.Product {
	p := product.Product{
		ID:          id,
		Name:        name,
		NormalPrice: dec(price),
		Stock:       stock,
		Weight:      weight,
	}
	if offer != "" {
		o := dec(offer)
		p.OfferPrice = &o
	}
	return p
}

type serviceDeps struct {
	products *mockProductRepo
	rates    *mockRateTable
	coupons  *mockCouponValidator
	gateway  *mockGateway
	store    *memStore
}

func newTestService(d serviceDeps, hooks ...Hook) *Service {
	if d.products == nil {
		d.products = &mockProductRepo{byID: map[string]product.Product{}}
	}
	if d.rates == nil {
		d.rates = &mockRateTable{}
	}
	if d.coupons == nil {
		d.coupons = &mockCouponValidator{}
	}
	if d.gateway == nil {
		d.gateway = &mockGateway{}
	}
	if d.store == nil {
		d.store = &memStore{stock: map[string]int{}}
	}
	quoter := shipping.NewQuoter(d.rates, shipping.Config{})
	return NewService(d.products, quoter, d.coupons, d.gateway, d.store, nil, hooks...)
}

// standardCart: P1 has list price 100, offer 80, stock 5, weight 500g.
// Two units to TAMIL NADU: subtotal 160, weight 1kg, shipping 50.
func standardDeps() serviceDeps {
	return serviceDeps{
		products: &mockProductRepo{byID: map[string]product.Product{
			"P1": testProduct("P1", "Herbal Soap", "100", "80", "500g", 5),
		}},
		gateway: &mockGateway{},
		store:   &memStore{stock: map[string]int{"P1": 5}},
	}
}

func standardRequest() CheckoutRequest {
	return CheckoutRequest{
		Lines:  []CartLine{{ProductID: "P1", Quantity: 2}},
		Region: "TAMIL NADU",
		Customer: Customer{
			FirstName: "Asha", LastName: "R", Email: "asha@example.com",
			Phone: "9000000000", Address: "12 Main St", City: "Chennai",
			Region: "TAMIL NADU", Pincode: "600001",
		},
	}
}

// --- ComputeAmount ---

func TestComputeAmount_EmptyCart(t *testing.T) {
	svc := newTestService(serviceDeps{})
	_, err := svc.ComputeAmount(context.Background(), nil, "TAMIL NADU", "")
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestComputeAmount_InvalidQuantity(t *testing.T) {
	svc := newTestService(standardDeps())
	_, err := svc.ComputeAmount(context.Background(), []CartLine{{ProductID: "P1", Quantity: 0}}, "TAMIL NADU", "")

	var iq *InvalidQuantityError
	require.ErrorAs(t, err, &iq)
	assert.Equal(t, "P1", iq.ProductID)
}

func TestComputeAmount_ProductNotFound(t *testing.T) {
	svc := newTestService(standardDeps())
	_, err := svc.ComputeAmount(context.Background(), []CartLine{{ProductID: "missing", Quantity: 1}}, "TAMIL NADU", "")

	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "missing", pnf.ProductID)
}

func TestComputeAmount_InsufficientStockPreCheck(t *testing.T) {
	deps := standardDeps()
	svc := newTestService(deps)

	_, err := svc.ComputeAmount(context.Background(), []CartLine{{ProductID: "P1", Quantity: 10}}, "TAMIL NADU", "")

	var is *InsufficientStockError
	require.ErrorAs(t, err, &is)
	assert.Equal(t, 5, is.Available)
	assert.Equal(t, 10, is.Requested)
	assert.Zero(t, deps.store.createdCount(), "no state mutated by a failed pre-check")
}

func TestComputeAmount_RegionalCartNoCoupon(t *testing.T) {
	svc := newTestService(standardDeps())

	amt, err := svc.ComputeAmount(context.Background(), []CartLine{{ProductID: "P1", Quantity: 2}}, "TAMIL NADU", "")
	require.NoError(t, err)

	assert.True(t, dec("160").Equal(amt.Subtotal), "subtotal uses the offer price: got %s", amt.Subtotal)
	assert.True(t, dec("1").Equal(amt.WeightKg), "got %s", amt.WeightKg)
	assert.True(t, dec("50").Equal(amt.ShippingCost), "regional tier-1 fee: got %s", amt.ShippingCost)
	assert.True(t, amt.Discount.IsZero())
	assert.True(t, dec("210").Equal(amt.Total), "got %s", amt.Total)
	assert.True(t, amt.Total.Equal(amt.Subtotal.Add(amt.ShippingCost).Sub(amt.Discount)))
}

func TestComputeAmount_WithCoupon(t *testing.T) {
	deps := standardDeps()
	maxDiscount := dec("50")
	deps.coupons = &mockCouponValidator{coupon: &coupon.Coupon{
		ID:             "c1",
		Code:           "SAVE10",
		DiscountType:   coupon.DiscountPercentage,
		DiscountValue:  dec("10"),
		MinOrderAmount: dec("100"),
		MaxDiscount:    &maxDiscount,
	}}
	svc := newTestService(deps)

	amt, err := svc.ComputeAmount(context.Background(), []CartLine{{ProductID: "P1", Quantity: 2}}, "TAMIL NADU", "SAVE10")
	require.NoError(t, err)

	assert.True(t, dec("16").Equal(amt.Discount), "min(16, 50): got %s", amt.Discount)
	assert.True(t, dec("194").Equal(amt.Total), "160 + 50 - 16: got %s", amt.Total)
	require.NotNil(t, amt.Coupon)
	assert.Equal(t, "SAVE10", amt.Coupon.Code)
}

func TestComputeAmount_InvalidCouponAbortsComputation(t *testing.T) {
	deps := standardDeps()
	deps.coupons = &mockCouponValidator{err: coupon.ErrInvalidCoupon}
	svc := newTestService(deps)

	_, err := svc.ComputeAmount(context.Background(), []CartLine{{ProductID: "P1", Quantity: 2}}, "TAMIL NADU", "BOGUS")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
}

func TestComputeAmount_ZeroTotalRejected(t *testing.T) {
	deps := standardDeps()
	// Free shipping via a configured zero rate, plus a fixed discount equal to
	// the subtotal, drives the total to zero.
	deps.rates = &mockRateTable{rates: map[string]*shipping.Rate{
		"TAMIL NADU": {Region: "TAMIL NADU", RatePerKg: dec("0"), IsActive: true},
	}}
	deps.coupons = &mockCouponValidator{coupon: &coupon.Coupon{
		ID:            "c2",
		Code:          "FREE",
		DiscountType:  coupon.DiscountFixed,
		DiscountValue: dec("160"),
	}}
	svc := newTestService(deps)

	_, err := svc.ComputeAmount(context.Background(), []CartLine{{ProductID: "P1", Quantity: 2}}, "TAMIL NADU", "FREE")
	require.ErrorIs(t, err, ErrInvalidOrderAmount)
}

func TestComputeAmount_Idempotent(t *testing.T) {
	svc := newTestService(standardDeps())
	lines := []CartLine{{ProductID: "P1", Quantity: 2}}

	first, err := svc.ComputeAmount(context.Background(), lines, "TAMIL NADU", "")
	require.NoError(t, err)
	second, err := svc.ComputeAmount(context.Background(), lines, "TAMIL NADU", "")
	require.NoError(t, err)

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.ShippingCost.Equal(second.ShippingCost))
	assert.True(t, first.Discount.Equal(second.Discount))
	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, first.Lines, second.Lines)
}

// --- CreatePaymentOrder ---

func TestCreatePaymentOrder(t *testing.T) {
	deps := standardDeps()
	svc := newTestService(deps)

	res, err := svc.CreatePaymentOrder(context.Background(), standardRequest())
	require.NoError(t, err)

	assert.Equal(t, []int64{21000}, deps.gateway.createdAmounts, "210 rupees in paise")
	assert.True(t, dec("210").Equal(res.Amount.Total))
	assert.Zero(t, deps.store.createdCount(), "nothing persisted before payment")
}

func TestCreatePaymentOrder_GatewayError(t *testing.T) {
	deps := standardDeps()
	deps.gateway = &mockGateway{createErr: errors.New("gateway down")}
	svc := newTestService(deps)

	_, err := svc.CreatePaymentOrder(context.Background(), standardRequest())
	require.Error(t, err)
	assert.Zero(t, deps.store.createdCount())
}

// --- VerifyAndFinalize ---

func capturedPayment(amount int64) *payment.Payment {
	return &payment.Payment{
		ID:       "pay_1",
		OrderID:  "order_gw",
		Status:   payment.StatusCaptured,
		Amount:   amount,
		Currency: "INR",
	}
}

func TestVerifyAndFinalize_Success(t *testing.T) {
	deps := standardDeps()
	deps.gateway = &mockGateway{payment: capturedPayment(21000)}
	svc := newTestService(deps)

	o, err := svc.VerifyAndFinalize(context.Background(), "order_gw", "pay_1", "sig", standardRequest())
	require.NoError(t, err)

	assert.Equal(t, PaymentRazorpay, o.PaymentMethod)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, "order_gw", o.GatewayOrderID)
	assert.Equal(t, "pay_1", o.GatewayPaymentID)
	assert.True(t, dec("210").Equal(o.Total))
	assert.NotEmpty(t, o.Number)
	assert.Equal(t, 1, deps.store.createdCount())
	assert.Equal(t, 3, deps.store.stock["P1"], "stock decremented by quantity")
}

func TestVerifyAndFinalize_PaymentNotFound(t *testing.T) {
	deps := standardDeps()
	deps.gateway = &mockGateway{fetchErr: payment.ErrNotFound}
	svc := newTestService(deps)

	_, err := svc.VerifyAndFinalize(context.Background(), "order_gw", "pay_x", "", standardRequest())
	require.ErrorIs(t, err, payment.ErrNotFound)
	assert.Zero(t, deps.store.createdCount())
}

func TestVerifyAndFinalize_OrderMismatch(t *testing.T) {
	deps := standardDeps()
	deps.gateway = &mockGateway{payment: capturedPayment(21000)}
	svc := newTestService(deps)

	_, err := svc.VerifyAndFinalize(context.Background(), "order_other", "pay_1", "", standardRequest())
	require.ErrorIs(t, err, payment.ErrOrderMismatch)
	assert.Zero(t, deps.store.createdCount())
}

func TestVerifyAndFinalize_NotCaptured(t *testing.T) {
	deps := standardDeps()
	p := capturedPayment(21000)
	p.Status = payment.StatusAuthorized
	deps.gateway = &mockGateway{payment: p}
	svc := newTestService(deps)

	_, err := svc.VerifyAndFinalize(context.Background(), "order_gw", "pay_1", "", standardRequest())

	var nc *payment.NotCapturedError
	require.ErrorAs(t, err, &nc)
	assert.Equal(t, payment.StatusAuthorized, nc.Status)
	assert.Zero(t, deps.store.createdCount())
}

func TestVerifyAndFinalize_AmountTolerance(t *testing.T) {
	tests := []struct {
		name     string
		captured int64
		wantErr  bool
	}{
		{name: "exact", captured: 21000},
		{name: "one paisa under", captured: 20999},
		{name: "one paisa over", captured: 21001},
		{name: "two paise under", captured: 20998, wantErr: true},
		{name: "tampered", captured: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := standardDeps()
			deps.gateway = &mockGateway{payment: capturedPayment(tt.captured)}
			svc := newTestService(deps)

			_, err := svc.VerifyAndFinalize(context.Background(), "order_gw", "pay_1", "", standardRequest())
			if tt.wantErr {
				require.ErrorIs(t, err, ErrAmountMismatch)
				assert.Zero(t, deps.store.createdCount(), "no order created on mismatch")
				assert.Equal(t, 5, deps.store.stock["P1"], "no stock decremented on mismatch")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, deps.store.createdCount())
		})
	}
}

// --- CreateCODOrder ---

func TestCreateCODOrder(t *testing.T) {
	deps := standardDeps()
	svc := newTestService(deps)

	o, err := svc.CreateCODOrder(context.Background(), standardRequest())
	require.NoError(t, err)

	assert.Equal(t, PaymentCOD, o.PaymentMethod)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Empty(t, o.GatewayOrderID)
	assert.Equal(t, "Asha R", o.Customer.Name())
	assert.Equal(t, 1, deps.store.createdCount())
	assert.Equal(t, 3, deps.store.stock["P1"])
}

func TestCreateCODOrder_StoreError(t *testing.T) {
	deps := standardDeps()
	deps.store = &memStore{stock: map[string]int{"P1": 5}, err: errors.Wrap(ErrStorage, "connect")}
	svc := newTestService(deps)

	_, err := svc.CreateCODOrder(context.Background(), standardRequest())
	require.ErrorIs(t, err, ErrStorage)
}

// --- Post-commit hooks ---

type recordingHook struct {
	done  chan string
	err   error
	panic bool
}

func (h *recordingHook) OrderCreated(_ context.Context, o *Order) error {
	if h.panic {
		defer func() { h.done <- o.ID }()
		panic("hook exploded")
	}
	h.done <- o.ID
	return h.err
}

func waitHook(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("hook was not invoked")
		return ""
	}
}

func TestHooks_RunAfterCommit(t *testing.T) {
	hook := &recordingHook{done: make(chan string, 1)}
	deps := standardDeps()
	svc := newTestService(deps, hook)

	o, err := svc.CreateCODOrder(context.Background(), standardRequest())
	require.NoError(t, err)
	assert.Equal(t, o.ID, waitHook(t, hook.done))
}

func TestHooks_FailureAndPanicDoNotAffectOrder(t *testing.T) {
	failing := &recordingHook{done: make(chan string, 1), err: errors.New("smtp down")}
	panicking := &recordingHook{done: make(chan string, 1), panic: true}
	deps := standardDeps()
	svc := newTestService(deps, failing, panicking)

	o, err := svc.CreateCODOrder(context.Background(), standardRequest())
	require.NoError(t, err)
	require.NotNil(t, o)

	waitHook(t, failing.done)
	waitHook(t, panicking.done)
	assert.Equal(t, 1, deps.store.createdCount())
}

// --- Concurrency ---

// Ten concurrent single-unit checkouts against five units of stock must yield
// exactly five orders; the rest fail with InsufficientStock and stock never
// goes negative.
func TestConcurrentReservations_NeverOversell(t *testing.T) {
	const (
		stock    = 5
		attempts = 10
	)

	deps := serviceDeps{
		products: &mockProductRepo{byID: map[string]product.Product{
			// Pre-check sees full stock for everyone; only the store's
			// conditional decrement arbitrates the race.
			"P1": testProduct("P1", "Herbal Soap", "100", "", "500g", stock),
		}},
		store: &memStore{stock: map[string]int{"P1": stock}},
	}
	svc := newTestService(deps)

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		succeeded     int
		outOfStock    int
		unexpectedErr error
	)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := standardRequest()
			req.Lines = []CartLine{{ProductID: "P1", Quantity: 1}}

			_, err := svc.CreateCODOrder(context.Background(), req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			default:
				var is *InsufficientStockError
				if errors.As(err, &is) {
					outOfStock++
				} else {
					unexpectedErr = err
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, unexpectedErr)
	assert.Equal(t, stock, succeeded)
	assert.Equal(t, attempts-stock, outOfStock)
	assert.Equal(t, 0, deps.store.stock["P1"])
	assert.GreaterOrEqual(t, deps.store.stock["P1"], 0, "stock never negative")
}
