package httpapi

import (
	"net/http"

	"storefront-be/internal/order"
	"storefront-be/internal/utils"
	"storefront-be/internal/voucher"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type voucherAmountRequest struct {
	Code        string          `json:"code"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
	OrderID     *int64          `json:"orderId"`
}

type VoucherHandlers struct {
	vouchers voucher.Service
	orders   order.Service
}

func NewVoucherHandlers(vouchers voucher.Service, orders order.Service) *VoucherHandlers {
	return &VoucherHandlers{vouchers: vouchers, orders: orders}
}

// PublicRoutes are reachable without a session.
func (h *VoucherHandlers) PublicRoutes(r chi.Router) {
	r.Get("/active", h.listActive)
}

func (h *VoucherHandlers) Routes(r chi.Router) {
	r.Post("/validate", h.validate)
	r.Post("/apply", h.apply)
	r.Get("/history", h.history)
}

func (h *VoucherHandlers) listActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vouchers, err := h.vouchers.ListActive(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if vouchers == nil {
		vouchers = []*voucher.ActiveVoucher{}
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"vouchers": vouchers})
}

func (h *VoucherHandlers) validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := caller(r)

	var req voucherAmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.vouchers.Validate(ctx, userID, req.Code, req.OrderAmount)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":   true,
		"voucher": res,
	})
}

func (h *VoucherHandlers) apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := caller(r)

	var req voucherAmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	// A redemption may only be attached to one of the caller's own orders.
	if req.OrderID != nil {
		if _, err := h.orders.GetOrder(ctx, *req.OrderID, userID, false); err != nil {
			writeError(ctx, w, err)
			return
		}
	}

	red, err := h.vouchers.Apply(ctx, userID, req.Code, req.OrderAmount, req.OrderID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "Voucher applied successfully",
		"redemption": red,
	})
}

func (h *VoucherHandlers) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := caller(r)

	entries, err := h.vouchers.History(ctx, userID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if entries == nil {
		entries = []*voucher.HistoryEntry{}
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"history": entries})
}
