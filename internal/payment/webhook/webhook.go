package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

const (
	CallbackTokenHeader = "X-Callback-Token"
	maxBodyBytes        = 64 << 10
)

// OrderPayments is the slice of the order service a gateway callback needs.
type OrderPayments interface {
	PaymentStatus(ctx context.Context, orderID, userID int64, isAdmin bool) (*order.PaymentInfo, error)
	MarkPaid(ctx context.Context, orderID int64) (*order.Order, error)
	MarkPaymentFailed(ctx context.Context, orderID int64) error
}

type Handler struct {
	orders OrderPayments
	token  string
}

func NewWebhookHandler(orders OrderPayments, token string) *Handler {
	return &Handler{orders: orders, token: token}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "webhook"),
		zap.String("method", "PaymentCallback"),
	)

	got := r.Header.Get(CallbackTokenHeader)
	if h.token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
		log.Warn("payment callback with bad token")
		utils.WriteError(ctx, w, utils.NewError("invalid_token", "invalid callback token", http.StatusUnauthorized))
		return
	}

	var payload payment.CallbackPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		utils.WriteError(ctx, w, utils.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	log = log.With(
		zap.String("external_id", payload.ExternalID),
		zap.String("status", payload.Status),
	)

	outcome := payload.Outcome()
	if outcome == payment.OutcomeIgnored {
		log.Info("payment callback ignored")
		utils.WriteJSON(w, http.StatusOK, map[string]string{"result": "ignored"})
		return
	}

	orderID, err := payment.ParseReference(payload.ExternalID)
	if err != nil {
		utils.WriteError(ctx, w, utils.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	switch outcome {
	case payment.OutcomePaid:
		err = h.settle(ctx, orderID, payload)
	case payment.OutcomeFailed:
		err = h.orders.MarkPaymentFailed(ctx, orderID)
	}

	var mismatch *amountMismatchError
	switch {
	case err == nil:
		log.Info("payment callback processed", zap.Int64("order_id", orderID))
		utils.WriteJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	case errors.Is(err, order.ErrPaidAfterCancel):
		log.Warn("payment received for cancelled order, refund required", zap.Int64("order_id", orderID))
		utils.WriteJSON(w, http.StatusOK, map[string]string{"result": "refund_required"})
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteError(ctx, w, utils.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.As(err, &mismatch):
		log.Warn("payment amount mismatch", zap.Error(err))
		utils.WriteError(ctx, w, utils.NewError("amount_mismatch", err.Error(), http.StatusUnprocessableEntity))
	default:
		log.Error("failed to update order from payment callback", zap.Error(err))
		utils.WriteError(ctx, w, utils.NewError("internal_error", "failed to update order", http.StatusInternalServerError))
	}
}

type amountMismatchError struct {
	want, got string
}

func (e *amountMismatchError) Error() string {
	return "paid amount " + e.got + " does not match order total " + e.want
}

func (h *Handler) settle(ctx context.Context, orderID int64, payload payment.CallbackPayload) error {
	if payload.Amount.Valid {
		info, err := h.orders.PaymentStatus(ctx, orderID, 0, true)
		if err != nil {
			return err
		}
		if !info.TotalAmount.Equal(payload.Amount.Decimal) {
			return &amountMismatchError{
				want: info.TotalAmount.StringFixed(2),
				got:  payload.Amount.Decimal.StringFixed(2),
			}
		}
	}

	_, err := h.orders.MarkPaid(ctx, orderID)
	return err
}
