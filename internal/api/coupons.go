package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/greenbasket/commerce-api/internal/domain/coupon"
)

// Admin endpoints address coupons by id; a miss is a 404 here, unlike the
// checkout path where an unknown code is a validation failure.
func writeCouponError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, coupon.ErrInvalidCoupon) {
		writeError(w, r, http.StatusNotFound, "coupon not found")
		return
	}
	writeDomainError(w, r, err)
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]couponPayload, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, toCouponPayload(c))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c := req.toDomain()
	c.ID = uuid.New().String()
	if err := h.coupons.Create(r.Context(), c); err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := h.coupons.GetByID(r.Context(), c.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toCouponPayload(*created))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c := req.toDomain()
	c.ID = chi.URLParam(r, "id")
	if err := h.coupons.Update(r.Context(), c); err != nil {
		writeCouponError(w, r, err)
		return
	}

	updated, err := h.coupons.GetByID(r.Context(), c.ID)
	if err != nil {
		writeCouponError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCouponPayload(*updated))
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeCouponError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
