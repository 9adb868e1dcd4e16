// Package api exposes the HTTP surface: the public storefront endpoints and
// the API-key protected admin endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/greenbasket/commerce-api/internal/domain/auth"
	"github.com/greenbasket/commerce-api/internal/domain/coupon"
	"github.com/greenbasket/commerce-api/internal/domain/order"
	"github.com/greenbasket/commerce-api/internal/domain/product"
	"github.com/greenbasket/commerce-api/internal/domain/shipping"
	"github.com/greenbasket/commerce-api/pkg/health"
	"github.com/greenbasket/commerce-api/pkg/httpmiddleware"
)

// Handler carries the dependencies for all HTTP endpoints.
type Handler struct {
	orders   *order.Service
	products product.Repository
	coupons  coupon.Repository
	rates    shipping.Repository
	store    order.Store
	apikeys  auth.Repository
	pepper   []byte
	health   *health.Health
}

// NewHandler creates the API handler.
func NewHandler(
	orders *order.Service,
	products product.Repository,
	coupons coupon.Repository,
	rates shipping.Repository,
	store order.Store,
	apikeys auth.Repository,
	pepper []byte,
	h *health.Health,
) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
		coupons:  coupons,
		rates:    rates,
		store:    store,
		apikeys:  apikeys,
		pepper:   pepper,
		health:   h,
	}
}

// RateLimitConfig tunes the public endpoint rate limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// Routes builds the router. ctx bounds the rate limiter's background
// eviction goroutine.
func (h *Handler) Routes(ctx context.Context, rl RateLimitConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return httpmiddleware.Wrap(next,
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.LogRequests(),
		)
	})
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/livez", h.health.LiveEndpoint)
	r.Get("/readyz", h.health.ReadyEndpoint)

	limit := httpmiddleware.Middleware(func(next http.Handler) http.Handler { return next })
	if rl.Max > 0 {
		limit = httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    rl.Max,
			Window: rl.Window,
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return limit(next) })

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)

		r.Post("/orders/quote", h.quoteOrder)
		r.Post("/orders/razorpay", h.createRazorpayOrder)
		r.Post("/orders/verify", h.verifyPayment)
		r.Post("/orders/cod", h.createCODOrder)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return APIKeyAuth(h.apikeys, h.pepper)(next)
		})

		r.Get("/coupons", h.listCoupons)
		r.Post("/coupons", h.createCoupon)
		r.Put("/coupons/{id}", h.updateCoupon)
		r.Delete("/coupons/{id}", h.deleteCoupon)

		r.Get("/shipping-rates", h.listShippingRates)
		r.Post("/shipping-rates", h.createShippingRate)
		r.Put("/shipping-rates/{id}", h.updateShippingRate)
		r.Delete("/shipping-rates/{id}", h.deleteShippingRate)

		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Patch("/orders/{id}/status", h.updateOrderStatus)

		r.Get("/dashboard/stats", h.dashboardStats)
	})

	return r
}
