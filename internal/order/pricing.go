package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var taxRate = decimal.RequireFromString("0.10")

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discountAmount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"totalAmount"`
}

func (t Totals) Equal(o Totals) bool {
	return t.Subtotal.Equal(o.Subtotal) &&
		t.Discount.Equal(o.Discount) &&
		t.Tax.Equal(o.Tax) &&
		t.Total.Equal(o.Total)
}

// ComputeTotals is the only place the tax and total formula lives. The
// discount is clamped to [0, subtotal] before tax is taken.
func ComputeTotals(subtotal, discount decimal.Decimal) Totals {
	discount = decimal.Max(decimal.Min(discount, subtotal), decimal.Zero)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).RoundBank(2)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    taxable.Add(tax).RoundBank(2),
	}
}

func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).RoundBank(2)
}

func OrderNumber(id int64) string {
	return fmt.Sprintf("ORD%06d", id)
}
