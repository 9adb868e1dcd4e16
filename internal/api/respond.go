package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/greenbasket/commerce-api/internal/domain/coupon"
	"github.com/greenbasket/commerce-api/internal/domain/order"
	"github.com/greenbasket/commerce-api/internal/domain/payment"
	"github.com/greenbasket/commerce-api/internal/domain/product"
	"github.com/greenbasket/commerce-api/internal/domain/shipping"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Error: message})
}

// writeDomainError maps a domain error onto an HTTP status. Validation and
// business-rule failures are 422, missing resources 404, everything else is
// treated as an internal error and logged without leaking details.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr   *order.InsufficientStockError
		qtyErr     *order.InvalidQuantityError
		missingErr *order.ProductNotFoundError
		minErr     *coupon.MinOrderAmountError
		captureErr *payment.NotCapturedError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidOrderAmount),
		errors.As(err, &qtyErr),
		errors.As(err, &missingErr),
		errors.As(err, &stockErr),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.As(err, &minErr):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, payment.ErrNotFound),
		errors.Is(err, payment.ErrOrderMismatch),
		errors.As(err, &captureErr),
		errors.Is(err, order.ErrAmountMismatch):
		writeError(w, r, http.StatusUnprocessableEntity, "payment verification failed: "+err.Error())

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, shipping.ErrRateNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())

	default:
		zctx.From(r.Context()).Error("Internal error", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
