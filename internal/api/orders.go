package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/greenbasket/commerce-api/internal/domain/order"
)

func (h *Handler) quoteOrder(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 || req.Region == "" {
		writeError(w, r, http.StatusBadRequest, "items and region are required")
		return
	}

	amount, err := h.orders.ComputeAmount(r.Context(), req.lines(), req.Region, req.CouponCode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toQuoteResponse(amount))
}

func (h *Handler) createRazorpayOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.orders.CreatePaymentOrder(r.Context(), req.toDomain())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, paymentOrderResponse{
		GatewayOrderID: res.GatewayOrder.ID,
		AmountPaise:    res.GatewayOrder.Amount,
		Currency:       res.GatewayOrder.Currency,
		Quote:          toQuoteResponse(res.Amount),
		Total:          res.Amount.Total,
	})
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.VerifyAndFinalize(r.Context(),
		req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature,
		req.toDomain(),
	)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) createCODOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.CreateCODOrder(r.Context(), req.toDomain())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	status := order.Status(q.Get("status"))
	if status != "" && !order.ValidStatus(status) {
		writeError(w, r, http.StatusBadRequest, "unknown status filter")
		return
	}

	orders, total, err := h.store.List(r.Context(), order.ListFilter{
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	writeJSON(w, r, http.StatusOK, orderListResponse{
		Orders: out,
		Total:  total,
		Page:   page,
		Limit:  limit,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	status := order.Status(req.Status)
	if !order.ValidStatus(status) {
		writeError(w, r, http.StatusBadRequest, "unknown status")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.store.UpdateStatus(r.Context(), id, status, req.Note); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for s, n := range stats.ByStatus {
		byStatus[string(s)] = n
	}
	writeJSON(w, r, http.StatusOK, statsResponse{
		TotalOrders:  stats.TotalOrders,
		ByStatus:     byStatus,
		TotalRevenue: stats.TotalRevenue,
		TodayOrders:  stats.TodayOrders,
	})
}
