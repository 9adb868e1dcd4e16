package api

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/greenbasket/commerce-api/internal/domain/coupon"
	"github.com/greenbasket/commerce-api/internal/domain/order"
	"github.com/greenbasket/commerce-api/internal/domain/product"
	"github.com/greenbasket/commerce-api/internal/domain/shipping"
)

type productResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	NormalPrice decimal.Decimal  `json:"normal_price"`
	OfferPrice  *decimal.Decimal `json:"offer_price,omitempty"`
	Stock       int              `json:"stock"`
	Weight      string           `json:"weight"`
	Images      []string         `json:"images,omitempty"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		NormalPrice: p.NormalPrice,
		OfferPrice:  p.OfferPrice,
		Stock:       p.Stock,
		Weight:      p.Weight,
		Images:      p.Images,
	}
}

type cartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type quoteRequest struct {
	Items      []cartItem `json:"items"`
	Region     string     `json:"region"`
	CouponCode string     `json:"coupon_code,omitempty"`
}

func (q quoteRequest) lines() []order.CartLine {
	lines := make([]order.CartLine, 0, len(q.Items))
	for _, it := range q.Items {
		lines = append(lines, order.CartLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

type pricedItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type quoteResponse struct {
	Items        []pricedItem    `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	WeightKg     decimal.Decimal `json:"weight_kg"`
	CouponCode   string          `json:"coupon_code,omitempty"`
}

func toQuoteResponse(a *order.Amount) quoteResponse {
	items := make([]pricedItem, 0, len(a.Lines))
	for _, l := range a.Lines {
		items = append(items, pricedItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	resp := quoteResponse{
		Items:        items,
		Subtotal:     a.Subtotal,
		ShippingCost: a.ShippingCost,
		Discount:     a.Discount,
		Total:        a.Total,
		WeightKg:     a.WeightKg,
	}
	if a.Coupon != nil {
		resp.CouponCode = a.Coupon.Code
	}
	return resp
}

type customerPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city,omitempty"`
	Region    string `json:"region"`
	Pincode   string `json:"pincode"`
}

type checkoutRequest struct {
	quoteRequest
	Customer customerPayload `json:"customer"`
}

func (c checkoutRequest) validate() error {
	if len(c.Items) == 0 {
		return errors.New("items are required")
	}
	if c.Region == "" {
		return errors.New("region is required")
	}
	switch {
	case c.Customer.FirstName == "":
		return errors.New("customer first_name is required")
	case c.Customer.Email == "":
		return errors.New("customer email is required")
	case c.Customer.Phone == "":
		return errors.New("customer phone is required")
	case c.Customer.Address == "":
		return errors.New("customer address is required")
	case c.Customer.Pincode == "":
		return errors.New("customer pincode is required")
	}
	return nil
}

func (c checkoutRequest) toDomain() order.CheckoutRequest {
	return order.CheckoutRequest{
		Lines:      c.lines(),
		Region:     c.Region,
		CouponCode: c.CouponCode,
		Customer: order.Customer{
			FirstName: c.Customer.FirstName,
			LastName:  c.Customer.LastName,
			Email:     c.Customer.Email,
			Phone:     c.Customer.Phone,
			Address:   c.Customer.Address,
			City:      c.Customer.City,
			Region:    c.Customer.Region,
			Pincode:   c.Customer.Pincode,
		},
	}
}

type paymentOrderResponse struct {
	GatewayOrderID string          `json:"gateway_order_id"`
	AmountPaise    int64           `json:"amount"`
	Currency       string          `json:"currency"`
	Quote          quoteResponse   `json:"quote"`
	Total          decimal.Decimal `json:"total"`
}

type verifyRequest struct {
	checkoutRequest
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature,omitempty"`
}

func (v verifyRequest) validate() error {
	if v.RazorpayOrderID == "" {
		return errors.New("razorpay_order_id is required")
	}
	if v.RazorpayPaymentID == "" {
		return errors.New("razorpay_payment_id is required")
	}
	return v.checkoutRequest.validate()
}

type orderResponse struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	Customer      customerPayload `json:"customer"`
	Items         []pricedItem    `json:"items,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]pricedItem, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, pricedItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return orderResponse{
		ID:            o.ID,
		OrderNumber:   o.Number,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		Customer: customerPayload{
			FirstName: o.Customer.FirstName,
			LastName:  o.Customer.LastName,
			Email:     o.Customer.Email,
			Phone:     o.Customer.Phone,
			Address:   o.Customer.Address,
			City:      o.Customer.City,
			Region:    o.Customer.Region,
			Pincode:   o.Customer.Pincode,
		},
		Items:        items,
		Subtotal:     o.Subtotal,
		ShippingCost: o.ShippingCost,
		Discount:     o.Discount,
		Total:        o.Total,
		CreatedAt:    o.CreatedAt,
	}
}

type couponPayload struct {
	ID             string           `json:"id,omitempty"`
	Code           string           `json:"code"`
	DiscountType   string           `json:"discount_type"`
	DiscountValue  decimal.Decimal  `json:"discount_value"`
	MinOrderAmount decimal.Decimal  `json:"min_order_amount"`
	MaxDiscount    *decimal.Decimal `json:"max_discount,omitempty"`
	ValidFrom      time.Time        `json:"valid_from"`
	ValidUntil     time.Time        `json:"valid_until"`
	UsageLimit     *int             `json:"usage_limit,omitempty"`
	UsedCount      int              `json:"used_count,omitempty"`
	Active         bool             `json:"active"`
}

func (p couponPayload) validate() error {
	if p.Code == "" {
		return errors.New("code is required")
	}
	switch coupon.DiscountType(p.DiscountType) {
	case coupon.DiscountPercentage, coupon.DiscountFixed:
	default:
		return errors.Errorf("discount_type must be %s or %s", coupon.DiscountPercentage, coupon.DiscountFixed)
	}
	if !p.DiscountValue.IsPositive() {
		return errors.New("discount_value must be greater than zero")
	}
	if !p.ValidUntil.After(p.ValidFrom) {
		return errors.New("valid_until must be after valid_from")
	}
	return nil
}

func (p couponPayload) toDomain() *coupon.Coupon {
	return &coupon.Coupon{
		ID:             p.ID,
		Code:           coupon.NormalizeCode(p.Code),
		DiscountType:   coupon.DiscountType(p.DiscountType),
		DiscountValue:  p.DiscountValue,
		MinOrderAmount: p.MinOrderAmount,
		MaxDiscount:    p.MaxDiscount,
		ValidFrom:      p.ValidFrom,
		ValidUntil:     p.ValidUntil,
		UsageLimit:     p.UsageLimit,
		Active:         p.Active,
	}
}

func toCouponPayload(c coupon.Coupon) couponPayload {
	return couponPayload{
		ID:             c.ID,
		Code:           c.Code,
		DiscountType:   string(c.DiscountType),
		DiscountValue:  c.DiscountValue,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscount:    c.MaxDiscount,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		UsageLimit:     c.UsageLimit,
		UsedCount:      c.UsedCount,
		Active:         c.Active,
	}
}

type shippingRatePayload struct {
	ID        string          `json:"id,omitempty"`
	Region    string          `json:"region"`
	RatePerKg decimal.Decimal `json:"rate_per_kg"`
	IsActive  bool            `json:"is_active"`
}

func (p shippingRatePayload) validate() error {
	if p.Region == "" {
		return errors.New("region is required")
	}
	if p.RatePerKg.IsNegative() {
		return errors.New("rate_per_kg must not be negative")
	}
	return nil
}

func (p shippingRatePayload) toDomain() *shipping.Rate {
	return &shipping.Rate{
		ID:        p.ID,
		Region:    shipping.Normalize(p.Region),
		RatePerKg: p.RatePerKg,
		IsActive:  p.IsActive,
	}
}

func toShippingRatePayload(rate shipping.Rate) shippingRatePayload {
	return shippingRatePayload{
		ID:        rate.ID,
		Region:    rate.Region,
		RatePerKg: rate.RatePerKg,
		IsActive:  rate.IsActive,
	}
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

type statsResponse struct {
	TotalOrders  int             `json:"total_orders"`
	ByStatus     map[string]int  `json:"by_status"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TodayOrders  int             `json:"today_orders"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}
