package voucher

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CalculateDiscount returns the discount v grants on subtotal. The result is
// rounded to cents and always lies in [0, subtotal].
func CalculateDiscount(v *Voucher, subtotal decimal.Decimal) decimal.Decimal {
	if v == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var raw decimal.Decimal
	switch v.DiscountType {
	case DiscountPercentage:
		raw = subtotal.Mul(v.DiscountValue).Div(hundred)
		if v.MaxDiscount.Valid && raw.GreaterThan(v.MaxDiscount.Decimal) {
			raw = v.MaxDiscount.Decimal
		}
	case DiscountFixedAmount:
		raw = v.DiscountValue
	default:
		return decimal.Zero
	}

	raw = raw.RoundBank(2)
	raw = decimal.Min(raw, subtotal)
	return decimal.Max(raw, decimal.Zero)
}
