package httpapi

import (
	"context"
	"errors"
	"net/http"

	"storefront-be/internal/inventory"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"
	"storefront-be/internal/voucher"

	"go.uber.org/zap"
)

var errBadRequest = errors.New("malformed request")

// voucherRejections maps each voucher rule to its public error code.
var voucherRejections = []struct {
	err  error
	code string
}{
	{voucher.ErrInvalidVoucherCode, "invalid_voucher_code"},
	{voucher.ErrVoucherInactive, "voucher_inactive"},
	{voucher.ErrVoucherNotYetActive, "voucher_not_yet_active"},
	{voucher.ErrVoucherExpired, "voucher_expired"},
	{voucher.ErrVoucherExhausted, "voucher_exhausted"},
	{voucher.ErrVoucherAlreadyUsedByUser, "voucher_already_used"},
}

func toAPIError(err error) utils.APIError {
	var (
		stockErr      *inventory.StockError
		transitionErr *order.TransitionError
		cancelErr     *order.CannotCancelError
		minErr        *voucher.MinimumOrderError
	)

	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, order.ErrInvalidInput),
		errors.Is(err, voucher.ErrInvalidInput):
		return utils.NewError("invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, order.ErrInvalidStatusValue):
		return utils.NewError("invalid_status", err.Error(), http.StatusBadRequest)

	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, voucher.ErrOrderReferenceNotFound):
		return utils.NewError("order_not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, voucher.ErrVoucherNotFound):
		return utils.NewError("voucher_not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, inventory.ErrProductNotFound):
		return utils.NewError("product_not_found", err.Error(), http.StatusNotFound)

	case errors.Is(err, order.ErrForbidden):
		return utils.NewError("forbidden", err.Error(), http.StatusForbidden)

	case errors.As(err, &stockErr):
		return utils.NewError("insufficient_stock", err.Error(), http.StatusConflict).WithDetails(map[string]any{
			"productId": stockErr.ProductID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	case errors.Is(err, inventory.ErrInsufficientStock):
		return utils.NewError("insufficient_stock", err.Error(), http.StatusConflict)
	case errors.As(err, &transitionErr):
		return utils.NewError("invalid_transition", err.Error(), http.StatusConflict).WithDetails(map[string]any{
			"currentStatus":   transitionErr.Current,
			"requestedStatus": transitionErr.Requested,
		})
	case errors.As(err, &cancelErr):
		return utils.NewError("cannot_cancel", err.Error(), http.StatusConflict).WithDetails(map[string]any{
			"currentStatus": cancelErr.Current,
		})
	case errors.Is(err, voucher.ErrVoucherCodeExists):
		return utils.NewError("voucher_code_exists", err.Error(), http.StatusConflict)

	case errors.As(err, &minErr):
		return utils.NewError("below_minimum_order_value", err.Error(), http.StatusUnprocessableEntity).WithDetails(map[string]any{
			"minOrderValue": minErr.MinOrderValue,
		})
	}

	for _, r := range voucherRejections {
		if errors.Is(err, r.err) {
			return utils.NewError(r.code, r.err.Error(), http.StatusUnprocessableEntity)
		}
	}

	return utils.NewError("internal_error", "operation failed", http.StatusInternalServerError)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.FromCtx(ctx).Error("request failed",
			zap.String("layer", "http"),
			zap.Error(err),
		)
	}
	utils.WriteError(ctx, w, apiErr)
}
