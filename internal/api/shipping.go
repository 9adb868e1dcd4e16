package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) listShippingRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rates.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]shippingRatePayload, 0, len(rates))
	for _, rate := range rates {
		out = append(out, toShippingRatePayload(rate))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) createShippingRate(w http.ResponseWriter, r *http.Request) {
	var req shippingRatePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rate := req.toDomain()
	rate.ID = uuid.New().String()
	if err := h.rates.Create(r.Context(), rate); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toShippingRatePayload(*rate))
}

func (h *Handler) updateShippingRate(w http.ResponseWriter, r *http.Request) {
	var req shippingRatePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rate := req.toDomain()
	rate.ID = chi.URLParam(r, "id")
	if err := h.rates.Update(r.Context(), rate); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toShippingRatePayload(*rate))
}

func (h *Handler) deleteShippingRate(w http.ResponseWriter, r *http.Request) {
	if err := h.rates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
