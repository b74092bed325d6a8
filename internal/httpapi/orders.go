package httpapi

import (
	"net/http"

	"storefront-be/internal/order"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderHandlers serves the customer-facing order endpoints.
type OrderHandlers struct {
	orders order.Service
}

func NewOrderHandlers(orders order.Service) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

func (h *OrderHandlers) Routes(r chi.Router) {
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
	r.Get("/{orderID}/payment-status", h.paymentStatus)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := caller(r)

	var in order.CreateOrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.orders.CreateOrder(ctx, userID, in)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, res)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := caller(r)

	orders, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := pathID(r, "orderID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	userID, isAdmin := caller(r)

	o, err := h.orders.GetOrder(ctx, orderID, userID, isAdmin)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := pathID(r, "orderID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	// The reason is optional, so an empty body is accepted.
	var req cancelOrderRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
	}

	userID, _ := caller(r)
	o, err := h.orders.CancelOrder(ctx, orderID, userID, req.Reason)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Order cancelled successfully",
		"order":   o,
	})
}

func (h *OrderHandlers) paymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := pathID(r, "orderID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	userID, isAdmin := caller(r)

	info, err := h.orders.PaymentStatus(ctx, orderID, userID, isAdmin)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, info)
}
