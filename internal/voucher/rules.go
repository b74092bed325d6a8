package voucher

import (
	"time"

	"github.com/shopspring/decimal"
)

// checkTerms applies the voucher-level rules in their fixed order. Existence
// and per-user redemption need the store and are checked by the service.
func checkTerms(v *Voucher, amount decimal.Decimal, now time.Time) error {
	if !v.IsActive {
		return ErrVoucherInactive
	}

	today := dateOf(now)
	if v.StartDate != nil && dateOf(*v.StartDate).After(today) {
		return ErrVoucherNotYetActive
	}
	if v.EndDate != nil && dateOf(*v.EndDate).Before(today) {
		return ErrVoucherExpired
	}

	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return ErrVoucherExhausted
	}

	if v.MinOrderValue.Valid && amount.LessThan(v.MinOrderValue.Decimal) {
		return &MinimumOrderError{MinOrderValue: v.MinOrderValue.Decimal}
	}

	return nil
}
