package httpapi

import (
	"net/http"

	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"
	"storefront-be/internal/voucher"

	"github.com/go-chi/chi/v5"
)

type statusRequest struct {
	Status string `json:"status"`
}

// AdminHandlers groups the back-office endpoints. Every route assumes the
// caller already passed the admin guard.
type AdminHandlers struct {
	orders   order.Service
	vouchers voucher.Service
}

func NewAdminHandlers(orders order.Service, vouchers voucher.Service) *AdminHandlers {
	return &AdminHandlers{orders: orders, vouchers: vouchers}
}

func (h *AdminHandlers) Routes(r chi.Router) {
	r.Put("/orders/{orderID}/status", h.updateStatus)
	r.Post("/orders/recalculate-totals", h.recalculate)
	r.Get("/orders/statistics", h.statistics)

	r.Get("/vouchers", h.listVouchers)
	r.Post("/vouchers", h.createVoucher)
	r.Get("/vouchers/{voucherID}", h.getVoucher)
	r.Put("/vouchers/{voucherID}", h.updateVoucher)
	r.Delete("/vouchers/{voucherID}", h.deactivateVoucher)

	r.Get("/metrics", h.metrics)
}

func (h *AdminHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := pathID(r, "orderID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	o, err := h.orders.TransitionStatus(ctx, orderID, req.Status)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Order status updated",
		"order":   o,
	})
}

func (h *AdminHandlers) recalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.orders.RecalculateOrderTotals(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, summary)
}

func (h *AdminHandlers) statistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.orders.Statistics(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, stats)
}

func (h *AdminHandlers) listVouchers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vouchers, err := h.vouchers.ListAll(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if vouchers == nil {
		vouchers = []*voucher.Voucher{}
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"vouchers": vouchers})
}

func (h *AdminHandlers) createVoucher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in voucher.VoucherInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(ctx, w, err)
		return
	}

	v, err := h.vouchers.Create(ctx, in)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, v)
}

func (h *AdminHandlers) getVoucher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "voucherID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	v, err := h.vouchers.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, v)
}

func (h *AdminHandlers) updateVoucher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "voucherID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var in voucher.VoucherInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(ctx, w, err)
		return
	}

	v, err := h.vouchers.Update(ctx, id, in)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, v)
}

// deactivateVoucher is a soft delete; redemption history keeps its foreign key.
func (h *AdminHandlers) deactivateVoucher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "voucherID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.vouchers.Deactivate(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Voucher deactivated"})
}

func (h *AdminHandlers) metrics(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, http.StatusOK, metrics.Snapshot())
}
