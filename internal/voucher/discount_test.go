package voucher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name     string
		voucher  *Voucher
		subtotal string
		want     string
	}{
		{
			name:     "percentage without cap",
			voucher:  &Voucher{DiscountType: DiscountPercentage, DiscountValue: dec("10")},
			subtotal: "200000",
			want:     "20000",
		},
		{
			name: "percentage capped by max discount",
			voucher: &Voucher{
				DiscountType:  DiscountPercentage,
				DiscountValue: dec("50"),
				MaxDiscount:   nullDec("25000"),
			},
			subtotal: "200000",
			want:     "25000",
		},
		{
			name:     "fixed amount below subtotal",
			voucher:  &Voucher{DiscountType: DiscountFixedAmount, DiscountValue: dec("15000")},
			subtotal: "40000",
			want:     "15000",
		},
		{
			name:     "fixed amount capped at subtotal",
			voucher:  &Voucher{DiscountType: DiscountFixedAmount, DiscountValue: dec("50000")},
			subtotal: "40000",
			want:     "40000",
		},
		{
			name:     "max discount ignored for fixed amount",
			voucher:  &Voucher{DiscountType: DiscountFixedAmount, DiscountValue: dec("30000"), MaxDiscount: nullDec("100")},
			subtotal: "40000",
			want:     "30000",
		},
		{
			name:     "rounds half to even at cents",
			voucher:  &Voucher{DiscountType: DiscountPercentage, DiscountValue: dec("12.5")},
			subtotal: "0.20",
			want:     "0.02",
		},
		{
			name:     "zero subtotal",
			voucher:  &Voucher{DiscountType: DiscountFixedAmount, DiscountValue: dec("5")},
			subtotal: "0",
			want:     "0",
		},
		{
			name:     "unknown type grants nothing",
			voucher:  &Voucher{DiscountType: "BOGO", DiscountValue: dec("5")},
			subtotal: "100",
			want:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDiscount(tt.voucher, dec(tt.subtotal))
			assert.True(t, dec(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestCalculateDiscount_Bounds(t *testing.T) {
	vouchers := []*Voucher{
		{DiscountType: DiscountPercentage, DiscountValue: dec("100")},
		{DiscountType: DiscountPercentage, DiscountValue: dec("33.33"), MaxDiscount: nullDec("7")},
		{DiscountType: DiscountFixedAmount, DiscountValue: dec("0.01")},
		{DiscountType: DiscountFixedAmount, DiscountValue: dec("999999")},
	}
	subtotals := []string{"0.01", "0.99", "1", "19.99", "250000", "1234567.89"}

	for _, v := range vouchers {
		for _, s := range subtotals {
			subtotal := dec(s)
			got := CalculateDiscount(v, subtotal)
			assert.False(t, got.IsNegative(), "discount negative for %s", s)
			assert.True(t, got.LessThanOrEqual(subtotal), "discount %s exceeds subtotal %s", got, s)
		}
	}
}
