package voucher

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrVoucherNotFound          = errors.New("voucher not found")
	ErrInvalidVoucherCode       = errors.New("invalid voucher code")
	ErrVoucherInactive          = errors.New("voucher is not active")
	ErrVoucherNotYetActive      = errors.New("voucher is not yet active")
	ErrVoucherExpired           = errors.New("voucher has expired")
	ErrVoucherExhausted         = errors.New("voucher usage limit exceeded")
	ErrBelowMinimumOrderValue   = errors.New("order is below the voucher minimum")
	ErrVoucherAlreadyUsedByUser = errors.New("you have already used this voucher")
	ErrVoucherCodeExists        = errors.New("voucher code already exists")
	ErrInvalidInput             = errors.New("invalid voucher input")
	ErrOrderReferenceNotFound   = errors.New("referenced order not found")
)

// MinimumOrderError carries the threshold the order amount failed to reach.
type MinimumOrderError struct {
	MinOrderValue decimal.Decimal
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("minimum order value is %s", e.MinOrderValue.StringFixed(2))
}

func (e *MinimumOrderError) Unwrap() error {
	return ErrBelowMinimumOrderValue
}
